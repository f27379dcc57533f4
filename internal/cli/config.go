package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/nextstep/internal/config"
)

func init() {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings with the API key masked",
		Run:   runConfigShow,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective settings to the global config file",
		Run:   runConfigInit,
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing global config file")

	cmd.AddCommand(show, initCmd)
	RootCmd.AddCommand(cmd)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	c := *getConfig()
	c.APIKey = maskKey(c.APIKey)

	if textFormat() {
		b, err := yaml.Marshal(&c)
		if err != nil {
			exitErr("encode config", err)
		}
		fmt.Print(string(b))
		if err := c.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
		return
	}
	printJSON(c)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")
	path := config.GlobalPath()

	if _, err := os.Stat(path); err == nil && !force {
		exitErr("config init", fmt.Errorf("%s exists (use --force to overwrite)", path))
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		exitErr("config init", err)
	}

	if err := config.WriteGlobal(getConfig()); err != nil {
		exitErr("config init", err)
	}
	printJSON(map[string]string{"status": "written", "path": path})
}

// maskKey keeps the last four characters of a key.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
