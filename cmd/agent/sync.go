package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/e-code/agent/internal/filesync"
)

func newSyncCommand(flags *rootFlags) *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Watch a local directory and mirror changes to the platform",
		Long: `Watches the project root recursively and mirrors file changes to
the platform: writes and creates upload, removes and renames delete.
Paths matching .gitignore rules are skipped. Runs until interrupted.`,
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
			if root == "" {
				root = app.cfg.Sync.Root
			}

			syncer := filesync.New(filesync.Config{
				Root:          root,
				ProjectID:     projectID,
				SettleWindow:  app.cfg.Sync.SettleWindow,
				MaxConcurrent: app.cfg.Sync.MaxConcurrent,
			}, app.platform, app.metrics, app.logger)

			if err := syncer.Start(cmd.Context()); err != nil {
				return fmt.Errorf("start syncer: %w", err)
			}
			defer syncer.Stop()

			app.logger.Info("file sync started",
				zap.String("project_id", projectID),
				zap.String("root", root))
			fmt.Printf("syncing %s (Ctrl-C to stop)\n", root)

			waitCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-waitCtx.Done()

			fmt.Println("stopping sync")
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "directory to watch (defaults to sync.root from config)")
	return cmd
}
