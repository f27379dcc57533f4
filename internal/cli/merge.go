package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/nextstep/internal/graph"
	"github.com/rcliao/nextstep/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "merge <previous.json> <fragment>",
		Short: "Merge a concept graph fragment into a graph",
		Long: "Merge a model-produced concept graph fragment into a previous graph without losing nodes. " +
			"The fragment file may be raw model output; the first graph object in it is used. " +
			"Use an empty previous path (\"\") to start from nothing.",
		Args: cobra.ExactArgs(2),
		Run:  runMerge,
	}

	RootCmd.AddCommand(cmd)
}

func runMerge(cmd *cobra.Command, args []string) {
	var previous *model.ConceptNode
	if args[0] != "" {
		b, err := os.ReadFile(args[0])
		if err != nil {
			exitErr("read previous", err)
		}
		previous = &model.ConceptNode{}
		if err := json.Unmarshal(b, previous); err != nil {
			exitErr("parse previous", err)
		}
	}

	raw, err := os.ReadFile(args[1])
	if err != nil {
		exitErr("read fragment", err)
	}
	fragment, err := graph.ExtractFragment(string(raw))
	if err != nil {
		exitErr("parse fragment", err)
	}

	log := newLogger()
	defer log.Sync()
	for _, p := range graph.Validate(fragment) {
		log.Warn("fragment problem", "node", p.ID, "problem", p.Message)
	}
	if dropped := graph.Dropped(previous, fragment); len(dropped) > 0 {
		log.Warn("fragment dropped nodes, keeping them", "ids", dropped)
	}

	merged := graph.Merge(previous, fragment)
	if previous == nil {
		merged = graph.Normalize(merged)
	}
	if textFormat() {
		printTree(merged)
		return
	}
	printJSON(merged)
}

func printTree(root *model.ConceptNode) {
	depth := map[*model.ConceptNode]int{}
	graph.Walk(root, func(n, parent *model.ConceptNode) {
		if parent != nil {
			depth[n] = depth[parent] + 1
		}
		status := n.Status
		if status == "" {
			status = "-"
		}
		fmt.Printf("%*s%s [%s %.1f] (%s)\n", depth[n]*2, "", n.Name, status, n.ExplorationDepth, n.ID)
	})
}
