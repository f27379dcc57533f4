package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/nextstep/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search messages by keyword",
		Long:  "Search message passages and recommendation options for matching text.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringP("conversation", "c", "", "Filter by conversation id")
	cmd.Flags().String("role", "", "Filter by role: user or assistant")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	conv, _ := cmd.Flags().GetString("conversation")
	role, _ := cmd.Flags().GetString("role")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.SearchMessages(cmd.Context(), store.SearchParams{
		ConversationID: conv,
		Query:          query,
		Role:           role,
		Limit:          limit,
	})
	if err != nil {
		exitErr("search", err)
	}

	if textFormat() {
		for _, r := range results {
			snippet := r.Content
			if r.Match != nil {
				snippet = fmt.Sprintf("[lines %d-%d] %s", r.Match.StartLine, r.Match.EndLine, r.Match.Text)
			}
			fmt.Printf("%s %s %s: %s\n", r.ConversationID, r.ID, r.Role, oneLine(snippet, 160))
		}
		return
	}

	if len(results) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(results)
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > limit {
		return string(r[:limit]) + "…"
	}
	return s
}
