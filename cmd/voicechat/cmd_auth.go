package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"voice-chat-go/internal/domain/auth"
)

var (
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Exchange credentials for an access token and persist it",
	Long: `Posts the credentials to the backend token endpoint. On success the
access token is written to the configured storage and reused by later
commands until logout.

The password is read from the first line of stdin when --password is not set.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored access token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Session.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "logged out")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a token is stored and what it says",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "account username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "account password (default: read from stdin)")
	_ = loginCmd.MarkFlagRequired("username")
}

func runLogin(cmd *cobra.Command, args []string) error {
	password := loginPassword
	if password == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return errors.New("no password given: pass --password or pipe it on stdin")
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if err := app.Session.Login(cmd.Context(), loginUsername, password); err != nil {
		var authErr *auth.AuthError
		if errors.As(err, &authErr) && authErr.StatusCode != 0 {
			return fmt.Errorf("login rejected: %s", authErr.Message)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", loginUsername)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg := app.Config

	fmt.Fprintf(out, "backend:  %s\n", cfg.Backend.BaseURL)
	fmt.Fprintf(out, "storage:  %s\n", cfg.Storage.Driver)

	token := app.Session.Token()
	if token == "" {
		fmt.Fprintln(out, "session:  not logged in")
		return nil
	}
	fmt.Fprintln(out, "session:  logged in")

	info, err := auth.DescribeToken(token)
	if err != nil {
		fmt.Fprintln(out, "token:    opaque")
		return nil
	}
	if info.Subject != "" {
		fmt.Fprintf(out, "subject:  %s\n", info.Subject)
	}
	if !info.ExpiresAt.IsZero() {
		state := "valid"
		if time.Now().After(info.ExpiresAt) {
			state = "expired"
		}
		fmt.Fprintf(out, "expires:  %s (%s)\n", info.ExpiresAt.Local().Format(time.RFC3339), state)
	}
	return nil
}
