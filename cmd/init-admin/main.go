package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"voice-chat-go/internal/domain/admin"
	"voice-chat-go/internal/platform/logging"
)

var (
	envPath string
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "init-admin",
	Short: "Create or refresh the admin account in the backend MySQL database",
	Long: `Reads MYSQL_* settings from .env, connects to the first reachable host
(MYSQL_HOST, then localhost, then 127.0.0.1), checks that the users table
exists and upserts admin/admin.

Exit codes: 0 ok, 1 unexpected error, 2 no host reachable,
3 users table missing, 4 upsert failed.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return seed(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.Flags().StringVar(&envPath, "env", ".env", "path of the .env file")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0, "overall deadline, 0 for none")
}

func seed(ctx context.Context, console io.Writer) error {
	logger, err := logging.New(logging.Config{Level: "info", Console: console})
	if err != nil {
		return err
	}
	defer logger.Close()

	settings, err := admin.LoadSettings(envPath, os.LookupEnv)
	if err != nil {
		logger.ErrorTag("管理员", "%v", err)
		return err
	}
	sources := make([]string, 0, len(admin.SettingKeys))
	for _, key := range admin.SettingKeys {
		sources = append(sources, key+"="+settings.Sources[key])
	}
	logger.InfoTag("管理员", "Settings sources: %s", strings.Join(sources, " "))

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return admin.Run(ctx, admin.Options{Settings: settings, Logger: logger})
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "init-admin: %v\n", err)
	}
	os.Exit(admin.ExitCode(err))
}
