package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/nextstep/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history <conversation-id>",
		Short: "Show a conversation's messages",
		Args:  cobra.ExactArgs(1),
		Run:   runHistory,
	}

	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	msgs, err := s.Messages(cmd.Context(), args[0])
	if err != nil {
		exitErr("history", err)
	}

	if !textFormat() {
		if msgs == nil {
			msgs = []model.Message{}
		}
		printJSON(msgs)
		return
	}
	for _, m := range msgs {
		status := ""
		if m.Status != model.StatusComplete {
			status = " (" + m.Status + ")"
		}
		fmt.Printf("%s%s> %s\n", m.Role, status, m.Content)
		for i, o := range m.Options {
			fmt.Printf("  [%d] %-6s %s: %s\n", i+1, o.Type, o.Content, o.Describe)
		}
		fmt.Println()
	}
}
