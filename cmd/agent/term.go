package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/e-code/agent/internal/terminal"
)

func newTermCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "term",
		Short: "Attach the local terminal to the project's remote shell",
		Long: `Attaches stdin and stdout to the project's remote terminal over
WebSocket. When stdin is a TTY it is put into raw mode for the
duration of the session. Detach with Ctrl-].`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(flags)
			if err != nil {
				return err
			}
			defer app.close()

			projectID, err := app.projectID()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(os.Stderr, "attaching to %s (Ctrl-] to detach)\r\n", projectID)
			bridge := terminal.NewBridge(app.endpoints, nil, nil, app.logger)
			if err := bridge.Attach(ctx, projectID); err != nil {
				return fmt.Errorf("terminal session: %w", err)
			}
			fmt.Fprintln(os.Stderr, "detached")
			return nil
		},
	}
}
