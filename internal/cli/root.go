// Package cli implements the nextstep CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/rcliao/nextstep/internal/config"
	"github.com/rcliao/nextstep/internal/logger"
	"github.com/rcliao/nextstep/internal/store"
)

var (
	dbPath     string
	formatFlag string
	langFlag   string

	cfgOnce sync.Once
	cfg     *config.Config
	cfgErr  error
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "nextstep",
	Short: "Guided reading with an LLM",
	Long: "Read with a language model that suggests where to go next. Each turn streams a narrative " +
		"plus deepen/next recommendations, and a per-conversation concept graph grows as you explore.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $NEXTSTEP_DB_PATH or <data_dir>/nextstep.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().StringVar(&langFlag, "lang", "", "Template language: zh or en (default from config)")
}

func getConfig() *config.Config {
	cfgOnce.Do(func() {
		cfg, cfgErr = config.Load()
	})
	if cfgErr != nil {
		exitErr("load config", cfgErr)
	}
	return cfg
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return getConfig().DBPath
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

func newLogger() *logger.Logger {
	c := getConfig()
	log, err := logger.New(c.LogMode, c.LogLevel)
	if err != nil {
		exitErr("logger", err)
	}
	return log
}

func textFormat() bool {
	return strings.EqualFold(formatFlag, "text")
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// readInput returns the positional args joined, or stdin when it is piped.
func readInput(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	stat, err := os.Stdin.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return "", nil
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// splitList splits a comma-separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
