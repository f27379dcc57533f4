package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/nextstep/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recently active first",
		Run:   runList,
	}

	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("ids-only", false, "Only output conversation ids")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	convs, err := s.ListConversations(cmd.Context(), store.ListParams{Limit: limit})
	if err != nil {
		exitErr("list", err)
	}

	if idsOnly || textFormat() {
		for _, c := range convs {
			if idsOnly {
				fmt.Println(c.ID)
				continue
			}
			fmt.Printf("%s  %s  %s\n", c.ID, c.UpdatedAt.Local().Format("2006-01-02 15:04"), c.Title)
		}
		return
	}

	if convs == nil {
		fmt.Println("[]")
		return
	}
	printJSON(convs)
}
