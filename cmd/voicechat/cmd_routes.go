package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"voice-chat-go/internal/bootstrap"
)

var openCmd = &cobra.Command{
	Use:   "open <path>",
	Short: "Resolve a client path through the route table and auth guard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest, err := app.Navigator.Navigate(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s -> %s [%s]\n", dest.Requested, dest.Path, dest.Route.View)
		switch {
		case dest.GuardRedirected:
			fmt.Fprintln(out, "redirected: login required")
		case dest.RedirectedFrom != "":
			fmt.Fprintf(out, "redirected from %s\n", dest.RedirectedFrom)
		}
		if dest.NotFound {
			fmt.Fprintln(out, "no route matches, showing the not found view")
		}
		for k, v := range dest.Params {
			fmt.Fprintf(out, "param %s=%s\n", k, v)
		}
		return nil
	},
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the client route table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PATH\tVIEW\tAUTH\tLAYOUT")
		for _, r := range app.Navigator.Table().Routes() {
			view := r.View
			if r.Redirect != "" {
				view = "-> " + r.Redirect
			}
			authMark := ""
			if r.RequiresAuth {
				authMark = "yes"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.FullPath, view, authMark, strings.Join(r.Layouts, "/"))
		}
		return tw.Flush()
	},
}

var devListen string

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Run the development server with the backend proxy",
	Long: `Serves the built client from dev.static_dir, forwards the configured
prefixes (/api and /static by default) to the backend and answers history
mode paths with the app shell, redirecting protected routes to /login when
the request carries no token.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return bootstrap.Serve(cmd.Context(), app, bootstrap.ServeOptions{Listen: devListen})
	},
}

func init() {
	devCmd.Flags().StringVar(&devListen, "listen", "", "listen address (default dev.listen, 0.0.0.0:5173)")
}
