package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oncallops/pagemigrate/internal/config"
	"github.com/oncallops/pagemigrate/internal/platform"
	"github.com/oncallops/pagemigrate/internal/reconcile"
	"github.com/oncallops/pagemigrate/internal/storage"
)

type rootFlags struct {
	configPath    string
	dryRun        bool
	verbose       bool
	debug         bool
	filterTag     string
	filterName    string
	filterMessage string
	historyDB     string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "pagemigrate",
		Short:         "Migrate alert notification markers from a legacy paging provider to incident.io webhooks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "pagemigrate.yaml", "path to the configuration file")
	pf.BoolVar(&flags.dryRun, "dry-run", false, "compute changes without touching the platform")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "include unchanged alerts in the output")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")
	pf.StringVar(&flags.filterTag, "filter-tag", "", "only process alerts carrying this tag")
	pf.StringVar(&flags.filterName, "filter-name", "", "only process alerts whose name matches this pattern")
	pf.StringVar(&flags.filterMessage, "filter-message", "", "only process alerts whose message matches this pattern")
	pf.StringVar(&flags.historyDB, "history-db", "", "record run results in this SQLite database")

	cmd.AddCommand(
		newOperationCommand(flags, "add-webhooks", "Add destination webhook markers to alerts with provider services", reconcile.OpAddWebhooks),
		newOperationCommand(flags, "remove-webhooks", "Remove destination webhook markers from alert messages", reconcile.OpRemoveWebhooks),
		newOperationCommand(flags, "remove-provider", "Remove the legacy provider's service markers from alert messages", reconcile.OpRemoveProvider),
		newValidateCommand(flags),
		newWatchCommand(flags),
	)
	return cmd
}

func (f *rootFlags) options() reconcile.Options {
	return reconcile.Options{
		DryRun:  f.dryRun,
		Verbose: f.verbose,
		Filter: reconcile.Filter{
			Tag:            f.filterTag,
			NamePattern:    f.filterName,
			MessagePattern: f.filterMessage,
		},
	}
}

// app bundles everything a command needs after configuration is loaded.
type app struct {
	logger  *zap.Logger
	cfg     *config.Config
	engine  *reconcile.Engine
	history *storage.SQLiteRunHistory
}

func buildApp(flags *rootFlags) (*app, error) {
	logger, err := newLogger(flags.debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	client := platform.NewClient(cfg.Platform.APIURL, cfg.Platform.APIKey, cfg.Platform.AppKey, logger.Named("platform"))
	engine := reconcile.New(client, client, cfg, logger.Named("reconcile"))

	a := &app{logger: logger, cfg: cfg, engine: engine}
	if flags.historyDB != "" {
		a.history, err = storage.NewSQLiteRunHistory(logger.Named("history"), flags.historyDB)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *app) close() {
	if a.history != nil {
		a.history.Close()
	}
	a.logger.Sync()
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}
