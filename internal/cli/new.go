package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "new [title]",
		Short: "Start a conversation",
		Run:   runNew,
	}

	RootCmd.AddCommand(cmd)
}

func runNew(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	c, err := s.CreateConversation(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		exitErr("new", err)
	}

	if textFormat() {
		fmt.Println(c.ID)
		return
	}
	printJSON(c)
}
