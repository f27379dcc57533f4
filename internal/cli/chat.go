package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/nextstep/internal/chat"
	"github.com/rcliao/nextstep/internal/events"
	"github.com/rcliao/nextstep/internal/llm"
	"github.com/rcliao/nextstep/internal/logger"
	"github.com/rcliao/nextstep/internal/model"
	"github.com/rcliao/nextstep/internal/prompt"
	"github.com/rcliao/nextstep/internal/splitter"
	"github.com/rcliao/nextstep/internal/store"
	"github.com/rcliao/nextstep/internal/stream"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat <conversation-id> [input]",
		Short: "Run one reading turn",
		Long: "Send input (argument or stdin) or pick a recommendation from the last reply with --option. " +
			"In text format the narrative streams to stdout; Ctrl-C cancels the turn and keeps the partial reply.",
		Args: cobra.MinimumNArgs(1),
		Run:  runChat,
	}

	cmd.Flags().IntP("option", "o", 0, "Pick the Nth recommendation (1-based) of the last reply")
	cmd.Flags().StringP("mode", "m", string(prompt.ModeFull), "Mode: full, content or recommendations")
	cmd.Flags().StringP("goal", "g", "", "Reading goal")
	cmd.Flags().Bool("no-graph", false, "Skip the concept graph update")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	id := args[0]
	option, _ := cmd.Flags().GetInt("option")
	mode, _ := cmd.Flags().GetString("mode")
	goal, _ := cmd.Flags().GetString("goal")
	noGraph, _ := cmd.Flags().GetBool("no-graph")

	input, err := readInput(args[1:])
	if err != nil {
		exitErr("read stdin", err)
	}

	c := getConfig()
	if err := c.Validate(); err != nil {
		exitErr("config", err)
	}
	log := newLogger()
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	var selected *model.RecommendationOption
	if option > 0 {
		selected, err = pickOption(ctx, s, id, option)
		if err != nil {
			exitErr("option", err)
		}
	}

	client, err := llm.New(llm.Config{BaseURL: c.BaseURL, APIKey: c.APIKey, Timeout: c.Timeout}, log)
	if err != nil {
		exitErr("model client", err)
	}

	pub, closePub := openPublisher(ctx, c.Events, c.EventsDir(), log)
	defer closePub()

	svc := chat.New(s, client, pub, log, chat.Options{
		Model:        c.Model,
		GraphModel:   c.GraphModel,
		Language:     renderLanguage(),
		Temperature:  c.Temperature,
		GraphUpdates: c.GraphUpdates && !noGraph,
	})

	var onUpdate func(stream.Snapshot)
	printer := &narrativePrinter{w: os.Stdout}
	if textFormat() {
		onUpdate = func(snap stream.Snapshot) { printer.update(snap.Content) }
	}

	res, err := svc.Turn(ctx, chat.TurnRequest{
		ConversationID: id,
		Input:          input,
		Selected:       selected,
		Mode:           prompt.ParseMode(mode),
		Goal:           goal,
	}, onUpdate)

	if res != nil {
		if textFormat() {
			printer.finish(res.Parsed)
		} else {
			printJSON(res)
		}
		if res.GraphErr != nil {
			fmt.Fprintf(os.Stderr, "warning: concept graph not updated: %v\n", res.GraphErr)
		}
	}
	if err != nil {
		exitErr("chat", err)
	}
}

// pickOption returns the nth option of the conversation's latest assistant
// message that has options.
func pickOption(ctx context.Context, s store.Store, conversationID string, n int) (*model.RecommendationOption, error) {
	msgs, err := s.Messages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Role != model.RoleAssistant || len(m.Options) == 0 {
			continue
		}
		if n > len(m.Options) {
			return nil, fmt.Errorf("last reply has %d options, got %d", len(m.Options), n)
		}
		o := m.Options[n-1]
		return &o, nil
	}
	return nil, fmt.Errorf("no recommendations in conversation %s", conversationID)
}

// openPublisher opens the turn log when enabled. A log that cannot be opened
// is reported and replaced by Nop so the turn still runs.
func openPublisher(ctx context.Context, enabled bool, dir string, log *logger.Logger) (events.Publisher, func()) {
	if !enabled {
		return events.Nop{}, func() {}
	}
	js, err := events.Open(ctx, dir, log)
	if err != nil {
		log.Warn("turn log unavailable", "dir", dir, "error", err)
		return events.Nop{}, func() {}
	}
	return js, func() { js.Close() }
}

// narrativePrinter writes the narrative as it grows. Only complete lines are
// classified, so a half-received option line is never printed as prose.
type narrativePrinter struct {
	w       io.Writer
	printed string
}

func (p *narrativePrinter) update(content string) {
	i := strings.LastIndexByte(content, '\n')
	if i < 0 {
		return
	}
	p.emit(splitter.Split(content[:i]).Main)
}

func (p *narrativePrinter) emit(main string) bool {
	if !strings.HasPrefix(main, p.printed) {
		return false
	}
	fmt.Fprint(p.w, main[len(p.printed):])
	p.printed = main
	return true
}

func (p *narrativePrinter) finish(res splitter.Result) {
	if !p.emit(res.Main) {
		fmt.Fprint(p.w, "\n"+res.Main)
	}
	fmt.Fprintln(p.w)
	for i, o := range res.Options {
		if i == 0 {
			fmt.Fprintln(p.w)
		}
		fmt.Fprintf(p.w, "[%d] %-6s %s: %s\n", i+1, o.Type, o.Content, o.Describe)
	}
}
