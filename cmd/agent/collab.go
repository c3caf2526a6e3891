package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/e-code/agent/internal/collab"
)

func newCollabCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "collab",
		Short: "Join a project's collaboration session and show live presence",
		Long: `Connects to the project's collaboration socket, announces local
presence and prints the collaborator roster whenever it changes.
Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(flags)
			if err != nil {
				return err
			}
			defer app.close()
			return runCollab(cmd.Context(), app)
		},
	}
}

func runCollab(ctx context.Context, app *appContext) error {
	projectID, err := app.projectID()
	if err != nil {
		return err
	}

	// The terminal has no editor surface; decorations are no-ops and
	// presence is rendered as a roster printout instead.
	applier := collab.NewApplier(collab.NopEditor{}, app.logger)
	store := collab.NewStore(applier, app.metrics, app.logger)
	store.OnChange(func() { printRoster(store.Collaborators()) })

	dispatcher := collab.NewDispatcher(app.logger)
	dispatcher.Register(store)

	client := collab.NewClient(
		collab.Config{SendBuffer: app.cfg.Collab.SendBuffer},
		app.endpoints, store, dispatcher, app.metrics, app.logger,
	)

	if err := client.Connect(ctx, projectID); err != nil {
		return fmt.Errorf("connect collaboration socket: %w", err)
	}
	defer client.Disconnect()

	app.logger.Info("collaboration session started",
		zap.String("project_id", projectID))
	fmt.Println("connected; waiting for collaborators (Ctrl-C to leave)")

	waitCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-waitCtx.Done()

	fmt.Println("leaving session")
	return nil
}

func printRoster(list []collab.Collaborator) {
	if len(list) == 0 {
		fmt.Println("no collaborators online")
		return
	}
	fmt.Printf("%d collaborator(s) online:\n", len(list))
	for _, c := range list {
		line := fmt.Sprintf("  %s [%s]", c.Name, c.Status)
		if c.CurrentFile != "" {
			line += " " + c.CurrentFile
			if c.Cursor != nil {
				line += fmt.Sprintf(":%d:%d", c.Cursor.Line, c.Cursor.Character)
			}
		}
		fmt.Println(line)
	}
}
