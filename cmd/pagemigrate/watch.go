package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oncallops/pagemigrate/internal/reconcile"
	"github.com/oncallops/pagemigrate/internal/runner"
)

func newWatchCommand(flags *rootFlags) *cobra.Command {
	var schedule string
	var operation string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run an operation on a cron schedule to keep alerts converged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := operationByName(operation)
			if err != nil {
				return err
			}

			a, err := buildApp(flags)
			if err != nil {
				return err
			}
			defer a.close()

			var recorder runner.Recorder
			if a.history != nil {
				recorder = a.history
			}
			r := runner.New(a.engine, recorder, a.logger.Named("runner"))
			if err := r.Schedule(schedule, op, flags.options()); err != nil {
				return err
			}

			r.Start()
			defer r.Stop()
			a.logger.Info("Watching",
				zap.String("operation", op.String()),
				zap.String("schedule", schedule))

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			a.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&schedule, "schedule", "s", "@every 1h", "cron expression for re-running the operation")
	cmd.Flags().StringVarP(&operation, "operation", "o", "add-webhooks", "operation to run: add-webhooks, remove-webhooks or remove-provider")
	return cmd
}

func operationByName(name string) (reconcile.Operation, error) {
	switch name {
	case "add-webhooks":
		return reconcile.OpAddWebhooks, nil
	case "remove-webhooks":
		return reconcile.OpRemoveWebhooks, nil
	case "remove-provider":
		return reconcile.OpRemoveProvider, nil
	default:
		return 0, fmt.Errorf("unknown operation %q", name)
	}
}
