package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/nextstep/internal/splitter"
)

func init() {
	cmd := &cobra.Command{
		Use:   "split [text]",
		Short: "Split model output into narrative and recommendation options",
		Long: "Split a model reply (argument or stdin) into the main narrative and the JSONL " +
			"recommendation options it contains.",
		Run: runSplit,
	}

	RootCmd.AddCommand(cmd)
}

func runSplit(cmd *cobra.Command, args []string) {
	text, err := readInput(args)
	if err != nil {
		exitErr("read stdin", err)
	}

	res := splitter.Split(text)
	if textFormat() {
		p := &narrativePrinter{w: os.Stdout}
		p.finish(res)
		return
	}
	printJSON(res)
}
