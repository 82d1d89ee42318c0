package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"slackharvest/pkg/auth"
	"slackharvest/pkg/config"
	"slackharvest/pkg/logger"
	"slackharvest/pkg/runner"
	"slackharvest/pkg/slack"
	"slackharvest/pkg/snapshot"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	outputDir   string
	channelID   string
	workspace   string
	concurrency int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "slackharvest",
	Short: "Export the threads of a Slack channel, resumably",
	Long: `slackharvest exports all thread-starting messages of a Slack channel
and, in a second pass, every reply inside those threads.

Both passes persist their progress after every unit of work, so a
multi-hour export survives crashes, network failures and Slack's rate
limiting: rerunning the same command continues exactly where the
previous run stopped, without duplicating records.

Credentials (token and optional session cookie) are pre-obtained and
supplied via 'slackharvest auth login', environment variables
(SLACK_TOKEN, SLACK_COOKIE) or a config file.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .slackharvest.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory for snapshots (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&channelID, "channel", "", "target channel id (overrides CHANNEL_ID)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "use credentials stored for this workspace")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "worker pool size (default 5)")

	rootCmd.SetVersionTemplate(`slackharvest {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// newRunner loads configuration and credentials and wires the export
// pipeline. Shared by the threads and replies commands.
func newRunner() (*runner.Runner, error) {
	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if channelID != "" {
		flags["channel"] = channelID
	}
	if concurrency > 0 {
		flags["concurrency"] = concurrency
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	// Same source precedence as config.Load, with one insertion: stored
	// credentials fill the gap before validation so a keychain token
	// passes the config check.
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".slackharvest.env"))

	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		return nil, err
	}
	cfg.LoadFromEnv()
	cfg.MergeFlags(flags)

	if cfg.Slack.Token == "" {
		if account := storedAccount(); account != nil {
			cfg.Slack.Token = account.Token
			if cfg.Slack.Cookie == "" {
				cfg.Slack.Cookie = account.Cookie
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := logger.Initialize(logger.Options{Level: cfg.Logging.Level, File: cfg.Logging.File}); err != nil {
		return nil, err
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("slackharvest starting")

	client := slack.NewClient(
		cfg.Slack.Token,
		cfg.Slack.Cookie,
		cfg.Workers.FetchTimeout,
		cfg.RateLimit.ThrottleFallback,
		log,
	)

	store, err := snapshot.NewStore(cfg.Output.Directory, snapshot.Files{
		Threads:  cfg.Output.ThreadsFile,
		Replies:  cfg.Output.RepliesFile,
		Progress: cfg.Output.ProgressFile,
	}, log)
	if err != nil {
		return nil, err
	}

	return runner.New(cfg, client, store, log), nil
}

// storedAccount resolves credentials from the credential manager chain
func storedAccount() *auth.Account {
	credManager, err := auth.NewManager()
	if err != nil {
		return nil
	}

	if workspace != "" {
		if account, err := credManager.Retrieve(workspace); err == nil {
			return account
		}
		return nil
	}

	if account, err := credManager.RetrieveDefault(); err == nil {
		return account
	}
	return nil
}
