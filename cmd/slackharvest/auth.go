package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"slackharvest/pkg/auth"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Slack credentials",
	Long: `Store, list and remove Slack credentials.

Credentials are saved to the system keychain when one is available,
falling back to an AES-encrypted file under the config directory.
slackharvest never talks to Slack's login flow; the token (xoxc-... or
xoxp-...) and the optional session cookie are obtained from an existing
browser session.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login [workspace]",
	Short: "Store credentials for a workspace",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		workspaceName := ""
		if len(args) > 0 {
			workspaceName = args[0]
		}
		if workspaceName == "" {
			fmt.Print("Workspace name: ")
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read workspace name: %w", err)
			}
			workspaceName = strings.TrimSpace(line)
		}
		if workspaceName == "" {
			return fmt.Errorf("workspace name is required")
		}

		fmt.Print("Token (hidden): ")
		tokenBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		token := strings.TrimSpace(string(tokenBytes))
		if token == "" {
			return fmt.Errorf("token is required")
		}

		fmt.Print("Session cookie (hidden, optional): ")
		cookieBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read cookie: %w", err)
		}
		cookie := strings.TrimSpace(string(cookieBytes))

		manager, err := auth.NewManager()
		if err != nil {
			return fmt.Errorf("failed to initialize credential storage: %w", err)
		}

		account := &auth.Account{
			Workspace: workspaceName,
			Token:     token,
			Cookie:    cookie,
		}
		if err := manager.Store(account); err != nil {
			return err
		}

		fmt.Printf("Credentials stored for workspace %q (token %s)\n",
			workspaceName, auth.MaskToken(token))
		return nil
	},
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces with stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := auth.NewManager()
		if err != nil {
			return fmt.Errorf("failed to initialize credential storage: %w", err)
		}

		accounts, err := manager.List()
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			fmt.Println("No stored credentials.")
			return nil
		}

		for _, account := range accounts {
			fmt.Printf("%-20s %s  (updated %s)\n",
				account.Workspace,
				auth.MaskToken(account.Token),
				account.LastModified.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove <workspace>",
	Short: "Remove stored credentials for a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := auth.NewManager()
		if err != nil {
			return fmt.Errorf("failed to initialize credential storage: %w", err)
		}

		if err := manager.Delete(args[0]); err != nil {
			return err
		}

		fmt.Printf("Credentials removed for workspace %q\n", args[0])
		return nil
	},
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(authRemoveCmd)
	rootCmd.AddCommand(authCmd)
}
