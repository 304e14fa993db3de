package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"voice-chat-go/internal/bootstrap"
)

var (
	// Global flags
	configPath string
	logLevel   string
	noDotEnv   bool

	// app is assembled in PersistentPreRunE and closed by run.
	app *bootstrap.App
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "voicechat",
	Short: "Client toolkit for the voice chat backend",
	Long: `voicechat manages the client side of the voice chat product:
the persisted login session, the client route table and the development
proxy server in front of the backend API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		app, err = bootstrap.Init(cmd.Context(), bootstrap.Options{
			ConfigPath: configPath,
			DotEnv:     !noDotEnv,
			Env:        lookupEnv,
			Console:    cmd.ErrOrStderr(),
		})
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./voicechat.yaml or $VOICECHAT_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noDotEnv, "no-dotenv", false, "do not preload ./.env")

	rootCmd.AddCommand(loginCmd, logoutCmd, statusCmd, openCmd, routesCmd, devCmd)
}

// lookupEnv lets --log-level win over VOICECHAT_LOG_LEVEL.
func lookupEnv(key string) (string, bool) {
	if key == "VOICECHAT_LOG_LEVEL" && logLevel != "" {
		return logLevel, true
	}
	return os.LookupEnv(key)
}

// run executes the command tree and always releases the runtime.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	defer func() {
		if app != nil {
			_ = app.Close(context.Background())
			app = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "voicechat: %v\n", err)
		stop()
		os.Exit(1)
	}
}
