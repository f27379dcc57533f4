package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export <conversation-id>",
		Short: "Export a conversation as JSON",
		Long:  "Export a conversation with its messages and every concept graph version.",
		Args:  cobra.ExactArgs(1),
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	exp, err := s.ExportConversation(cmd.Context(), args[0])
	if err != nil {
		exitErr("export", err)
	}

	printJSON(exp)
}
