package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/nextstep/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "graph <conversation-id>",
		Short: "Show a conversation's concept graph",
		Long:  "Show the latest concept graph, a specific --version, or the --history of versions (newest first).",
		Args:  cobra.ExactArgs(1),
		Run:   runGraph,
	}

	cmd.Flags().Int("version", 0, "Graph version to show (default: latest)")
	cmd.Flags().Bool("history", false, "List every stored version")

	RootCmd.AddCommand(cmd)
}

func runGraph(cmd *cobra.Command, args []string) {
	id := args[0]
	version, _ := cmd.Flags().GetInt("version")
	history, _ := cmd.Flags().GetBool("history")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	if history {
		versions, err := s.GraphHistory(ctx, id)
		if err != nil {
			exitErr("graph history", err)
		}
		if !textFormat() {
			if versions == nil {
				versions = []model.GraphVersion{}
			}
			printJSON(versions)
			return
		}
		for _, v := range versions {
			fmt.Printf("v%d  %d nodes  %s\n", v.Version, v.NodeCount, v.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		}
		return
	}

	v, err := s.GraphVersion(ctx, id, version)
	if err != nil {
		exitErr("graph", err)
	}
	if textFormat() {
		fmt.Printf("version %d (%d nodes)\n", v.Version, v.NodeCount)
		printTree(v.Root)
		return
	}
	printJSON(v)
}
