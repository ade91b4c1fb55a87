package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"shelfsync/internal/config"
	"shelfsync/internal/goodreads"
	"shelfsync/internal/isbncache"
	"shelfsync/internal/library"
	"shelfsync/internal/lookup"
	"shelfsync/internal/lookup/googlebooks"
	"shelfsync/internal/lookup/openlibrary"
	"shelfsync/internal/notifications"
	"shelfsync/internal/runlock"
	"shelfsync/internal/session"
	"shelfsync/internal/storygraph"
	"shelfsync/internal/syncstate"
	"shelfsync/internal/workflow"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var dryRun bool
	var accountName string
	var fromCSV string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Export the Goodreads library and upload changes to StoryGraph",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			lock := runlock.New(cfg.StateDir())
			if err := lock.Acquire(); err != nil {
				if errors.Is(err, runlock.ErrHeld) {
					return fmt.Errorf("%w (lock file %s)", runlock.ErrHeld, lock.Path())
				}
				return err
			}
			defer lock.Release()

			runner := newRunner(cfg, logger, fromCSV)
			opts := workflow.RunOptions{Force: force, DryRun: dryRun}
			var results []*workflow.Result
			if accountName != "" {
				account, err := cfg.Account(accountName)
				if err != nil {
					return err
				}
				result, runErr := runner.RunAccount(cmd.Context(), account, opts)
				if result != nil {
					results = append(results, result)
				}
				printSyncResults(cmd, results)
				return runErr
			}

			results, err = runner.RunAll(cmd.Context(), opts)
			printSyncResults(cmd, results)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Upload even when the library is unchanged")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be uploaded without uploading or saving state")
	cmd.Flags().StringVar(&accountName, "account", "", "Sync only the named account")
	cmd.Flags().StringVar(&fromCSV, "from-csv", "", "Use a local export file instead of downloading from Goodreads")
	return cmd
}

// fileExporter serves a manually downloaded export so a sync can run without
// touching Goodreads.
type fileExporter struct {
	path string
}

func (f fileExporter) Login(context.Context) error { return nil }

func (f fileExporter) Export(context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read export file: %w", err)
	}
	return data, nil
}

// newRunner assembles the sync pipeline from configuration. Site clients are
// built per account so every run starts with its own cookie jar.
func newRunner(cfg *config.Config, logger *slog.Logger, fromCSV string) *workflow.Runner {
	sessions := session.NewStore(cfg.SessionDir(), logger)
	states := syncstate.NewStore(cfg.StateDir(), logger)
	notifier := notifications.NewService(cfg)

	var enricher *library.Enricher
	if cfg.Lookup.Enabled {
		delay := time.Duration(cfg.Lookup.RateLimitSeconds) * time.Second
		cache := isbncache.NewCache(cfg.Lookup.CachePath, logger)
		resolver := lookup.NewResolver(cache, delay, logger, lookupSources(cfg)...)
		enricher = library.NewEnricher(resolver, delay, logger)
	}

	clients := workflow.Clients{
		NewExporter: func(account config.Account) (workflow.Exporter, error) {
			if fromCSV != "" {
				return fileExporter{path: fromCSV}, nil
			}
			return goodreads.New(goodreads.Options{
				Email:          account.GoodreadsEmail,
				Password:       account.GoodreadsPassword,
				Account:        account.Name,
				Sessions:       sessions,
				RequestTimeout: time.Duration(cfg.Sync.RequestTimeout) * time.Second,
				PollInterval:   time.Duration(cfg.Sync.ExportPollInterval) * time.Second,
				ExportTimeout:  time.Duration(cfg.Sync.ExportTimeout) * time.Second,
				DebugDir:       cfg.Paths.LogDir,
				Logger:         logger,
			})
		},
		NewUploader: func(account config.Account) (workflow.Uploader, error) {
			return storygraph.New(storygraph.Options{
				Email:          account.StorygraphEmail,
				Password:       account.StorygraphPassword,
				Account:        account.Name,
				Sessions:       sessions,
				RequestTimeout: time.Duration(cfg.Sync.RequestTimeout) * time.Second,
				DebugDir:       cfg.Paths.LogDir,
				Logger:         logger,
			})
		},
	}

	return workflow.NewRunner(cfg, states, enricher, notifier, clients, logger)
}

func lookupSources(cfg *config.Config) []lookup.Source {
	timeout := time.Duration(cfg.Lookup.RequestTimeout) * time.Second
	var sources []lookup.Source
	for _, name := range cfg.Lookup.Sources {
		switch name {
		case config.SourceOpenLibrary:
			sources = append(sources, openlibrary.New(openlibrary.WithTimeout(timeout)))
		case config.SourceGoogleBooks:
			sources = append(sources, googlebooks.New(googlebooks.WithTimeout(timeout)))
		}
	}
	return sources
}

func printSyncResults(cmd *cobra.Command, results []*workflow.Result) {
	if len(results) == 0 {
		return
	}

	color := shouldColorize(cmd.OutOrStdout())
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		outcome := colorize("uploaded", ansiGreen, color)
		if result.Skipped {
			outcome = colorize("skipped ("+result.Reason+")", ansiYellow, color)
		}
		rows = append(rows, []string{
			result.Account,
			outcome,
			fmt.Sprintf("%d", result.BookCount),
			fmt.Sprintf("%d", result.Enrichment.Found),
			result.Duration.Round(time.Millisecond).String(),
		})
	}

	table := renderTable(
		[]string{"Account", "Result", "Books", "ISBNs Found", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
	fmt.Fprintln(cmd.OutOrStdout(), table)
}
