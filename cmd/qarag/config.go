package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matsen/qarag/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or write configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file populated with defaults",
	Long: `Write a config file populated with defaults.

The API key is never written; keep it in the environment or .env.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	shown := cfg.Redacted()
	if humanOutput {
		data, err := yaml.Marshal(&shown)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	}
	return outputJSON(shown)
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.DefaultConfigFile
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil {
		exitWithError(ExitError, "%s already exists", path)
	}

	out := config.Defaults()
	if err := out.Save(path); err != nil {
		exitWithError(ExitError, "writing config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Wrote %s\n", path)
		return nil
	}
	return outputJSON(StatusResponse{Status: "written", Path: path})
}
