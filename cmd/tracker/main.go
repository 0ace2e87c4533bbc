package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	verbose bool
	user    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root, closeApp := newRootCmd(openApp)
	err := root.ExecuteContext(ctx)
	closeApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, bad("Error:"), err)
		os.Exit(1)
	}
}

// standalone marks commands that run without opening the store.
const standalone = "standalone"

// newRootCmd builds the command tree. The returned func releases whatever the
// command opened and must run whether or not it failed.
func newRootCmd(open openFunc) (*cobra.Command, func()) {
	var opts globalOptions
	var app *cliApp

	root := &cobra.Command{
		Use:           "tracker",
		Short:         "Track placement applications from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[standalone] != "" {
				return nil
			}
			var err error
			app, err = open(cmd.Context(), opts)
			return err
		},
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&opts.user, "user", "", "User id (default: TRACKER_USER_ID)")

	get := func() *cliApp { return app }
	root.AddCommand(
		newListCmd(get),
		newBoardCmd(get),
		newUpcomingCmd(get),
		newStatsCmd(get),
		newExportCmd(get),
		newStatusCmd(get),
		newEligibilityCmd(get),
		newDeleteCmd(get),
		newExtractCmd(get),
		newInboxCmd(get),
	)
	closeApp := func() {
		if app != nil && app.close != nil {
			app.close()
			app = nil
		}
	}
	return root, closeApp
}
