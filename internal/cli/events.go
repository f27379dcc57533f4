package cli

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/rcliao/nextstep/internal/events"
)

func init() {
	cmd := &cobra.Command{
		Use:   "events [conversation-id]",
		Short: "Replay the turn log",
		Long:  "Replay recorded turn events, oldest first, for one conversation or all of them.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runEvents,
	}

	RootCmd.AddCommand(cmd)
}

func runEvents(cmd *cobra.Command, args []string) {
	conversationID := ""
	if len(args) > 0 {
		conversationID = args[0]
	}

	c := getConfig()
	log := newLogger()
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	js, err := events.Open(ctx, c.EventsDir(), log)
	if err != nil {
		exitErr("open turn log", err)
	}
	defer js.Close()

	evs, err := js.Replay(ctx, conversationID)
	if err != nil {
		exitErr("replay", err)
	}

	if !textFormat() {
		if evs == nil {
			evs = []events.Event{}
		}
		printJSON(evs)
		return
	}
	for _, e := range evs {
		line := fmt.Sprintf("%s  %s  %-9s turn=%s", e.Time.Local().Format("2006-01-02 15:04:05"), e.ConversationID, e.Kind, e.TurnID)
		switch {
		case e.Error != "":
			line += " error=" + e.Error
		case e.Kind == events.KindGraph:
			line += fmt.Sprintf(" version=%d", e.GraphVersion)
		case e.Kind != events.KindStarted:
			line += fmt.Sprintf(" chars=%d options=%d", e.Chars, e.Options)
		}
		fmt.Println(line)
	}
}
