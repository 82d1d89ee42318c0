package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"slackharvest/pkg/auth"
	"slackharvest/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage slackharvest configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (.env files included)
  - Configuration file
  - Default values (lowest priority)`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created in the current directory as '.slackharvest.yaml'
unless a different path is given with the --config flag.`,
	RunE: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration merged from all sources.

Sensitive values like the token and cookie are masked.`,
	RunE: runConfigShow,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

const exampleConfig = `# slackharvest configuration file
#
# Credentials can also come from environment variables (SLACK_TOKEN,
# SLACK_COOKIE, CHANNEL_ID), a .env file, or 'slackharvest auth login'.

slack:
  # Pre-obtained API token (xoxc-... or xoxp-...)
  token: ""

  # Session cookie, required for browser-session (xoxc) tokens
  cookie: ""

  # Channel to export
  channel: ""

  # Messages requested per page
  page_limit: 1000

rate_limit:
  # Minimum gap between successive pages of one listing
  page_interval: 1s

  # Wait applied when the server throttles without a Retry-After header
  throttle_fallback: 10s

workers:
  # Concurrent reply/permalink fetches (1-10)
  concurrency: 5

  # Per-request timeout
  fetch_timeout: 30s

output:
  directory: "."
  threads_file: "threads.json"
  replies_file: "replies.json"
  progress_file: "progress.json"
  csv_file: "threads.csv"

logging:
  # debug, info, warn, error
  level: "info"

  # Optional log file, written alongside console output
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".slackharvest.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := os.WriteFile(path, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Printf("Created %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		return err
	}
	cfg.LoadFromEnv()

	// Masked copy for display
	shown := *cfg
	if shown.Slack.Token != "" {
		shown.Slack.Token = auth.MaskToken(shown.Slack.Token)
	}
	if shown.Slack.Cookie != "" {
		shown.Slack.Cookie = auth.MaskToken(shown.Slack.Cookie)
	}

	data, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		return err
	}
	cfg.LoadFromEnv()

	if err := cfg.Validate(); err != nil {
		return err
	}

	fmt.Println("Configuration is valid.")
	return nil
}
