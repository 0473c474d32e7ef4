package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oncallops/pagemigrate/internal/model"
	"github.com/oncallops/pagemigrate/internal/reconcile"
)

func newOperationCommand(flags *rootFlags, name, short string, op reconcile.Operation) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(flags)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.engine.Run(cmd.Context(), op, flags.options())
			if err != nil {
				return err
			}
			if a.history != nil {
				if err := a.history.RecordResult(cmd.Context(), result); err != nil {
					a.logger.Warn("Failed to record run history", zap.Error(err))
				}
			}
			printResult(cmd, result)
			return nil
		},
	}
}

func newValidateCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that every referenced provider service has a usable mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(flags)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.engine.Validate(cmd.Context(), flags.options())
			if err != nil {
				return err
			}
			printValidation(cmd, report)
			if report.Blocking(false) {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}
}

func printResult(cmd *cobra.Command, result *model.RunResult) {
	if result.Validation != nil && !result.Validation.Clean() {
		printValidation(cmd, result.Validation)
	}

	prefix := ""
	if result.DryRun {
		prefix = "[dry run] "
	}
	cmd.Printf("%s%s: %d processed, %d updated, %d unchanged, %d skipped, %d failed\n",
		prefix, result.Operation, result.Processed, result.Updated,
		result.Unchanged, result.Skipped, result.Failed)

	for _, alert := range result.Alerts {
		cmd.Printf("\n[%s] %s (id %d)\n", alert.Status, alert.AlertName, alert.AlertID)
		if alert.Reason != "" {
			cmd.Printf("  reason: %s\n", alert.Reason)
		}
		if alert.Status == model.StatusUpdated || alert.Status == model.StatusUpdateFailed {
			if alert.NewMessage != "" && alert.NewMessage != alert.OldMessage {
				cmd.Printf("  message: %s\n       ->  %s\n", alert.OldMessage, alert.NewMessage)
			}
			if alert.NewTags != nil {
				cmd.Printf("  tags:    %v\n       ->  %v\n", alert.OldTags, alert.NewTags)
			}
		}
	}
}

func printValidation(cmd *cobra.Command, report *model.ValidationReport) {
	if report.Clean() {
		cmd.Println("validation: all referenced services are mapped")
		return
	}
	for _, svc := range report.Unmapped {
		cmd.Printf("validation: service %q has no mapping\n", svc)
	}
	for _, svc := range report.NullMapped {
		cmd.Printf("validation: service %q is mapped without a team\n", svc)
	}
	for _, m := range report.MalformedTeams {
		cmd.Printf("validation: service %q has malformed team name %q\n", m.Service, m.Team)
	}
}
