package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"shelfsync/internal/config"
	"shelfsync/internal/fileutil"
	"shelfsync/internal/fingerprint"
	"shelfsync/internal/library"
	"shelfsync/internal/logging"
	"shelfsync/internal/notifications"
	"shelfsync/internal/syncstate"
)

// Exporter produces the source library as CSV bytes.
type Exporter interface {
	Login(ctx context.Context) error
	Export(ctx context.Context) ([]byte, error)
}

// Uploader pushes the enriched CSV to the destination site.
type Uploader interface {
	Login(ctx context.Context) error
	Upload(ctx context.Context, filename string, csv []byte) error
}

// Clients builds fresh site clients per account, so each run gets its own
// cookie jar and session handling.
type Clients struct {
	NewExporter func(account config.Account) (Exporter, error)
	NewUploader func(account config.Account) (Uploader, error)
}

// RunOptions adjusts how a sync run treats the skip decision.
type RunOptions struct {
	// Force uploads even when the fingerprint matches the previous run.
	Force bool
	// DryRun reports what would happen without uploading or saving state.
	DryRun bool
}

// Result captures the outcome of one account's sync run.
type Result struct {
	Account    string
	RunID      string
	Skipped    bool
	Reason     string
	BookCount  int
	Hash       string
	Enrichment library.Stats
	Duration   time.Duration
}

// Runner executes the export/enrich/compare/upload pipeline per account.
type Runner struct {
	cfg      *config.Config
	states   *syncstate.Store
	enricher *library.Enricher
	notifier notifications.Service
	clients  Clients
	logger   *slog.Logger
	now      func() time.Time
}

// NewRunner wires the pipeline. enricher may be nil when lookup is disabled;
// the export then goes up with only the identifiers it already carries.
func NewRunner(cfg *config.Config, states *syncstate.Store, enricher *library.Enricher, notifier notifications.Service, clients Clients, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		states:   states,
		enricher: enricher,
		notifier: notifier,
		clients:  clients,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		now:      time.Now,
	}
}

// RunAll syncs every configured account in order. A failing account does not
// stop the rest; the joined error reports all failures.
func (r *Runner) RunAll(ctx context.Context, opts RunOptions) ([]*Result, error) {
	var results []*Result
	var errs []error
	for _, account := range r.cfg.Accounts {
		result, err := r.RunAccount(ctx, account, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("account %q: %w", account.Name, err))
			continue
		}
		results = append(results, result)
	}
	return results, errors.Join(errs...)
}

// RunAccount executes a full sync for one account: export, validate, enrich,
// fingerprint, compare against the previous run, and upload when changed.
func (r *Runner) RunAccount(ctx context.Context, account config.Account, opts RunOptions) (*Result, error) {
	started := r.now()
	result := &Result{
		Account: account.Name,
		RunID:   uuid.NewString(),
	}
	logger := r.logger.With(
		logging.String(logging.FieldAccount, account.Name),
		logging.String(logging.FieldRunID, result.RunID))

	logger.Info("sync run starting",
		logging.Bool("force", opts.Force),
		logging.Bool("dry_run", opts.DryRun))
	if err := r.notifier.NotifySyncStarted(ctx, account.Name); err != nil {
		logger.Warn("failed to send start notification", logging.Error(err))
	}

	result, err := r.runPipeline(ctx, account, opts, result, logger)
	if err != nil {
		if notifyErr := r.notifier.NotifyError(ctx, err, "sync for "+account.Name); notifyErr != nil {
			logger.Warn("failed to send error notification", logging.Error(notifyErr))
		}
		return nil, err
	}

	result.Duration = r.now().Sub(started)
	if result.Skipped {
		logger.Info("sync skipped", logging.String("reason", result.Reason))
		if err := r.notifier.NotifySyncSkipped(ctx, account.Name, result.Reason); err != nil {
			logger.Warn("failed to send skip notification", logging.Error(err))
		}
		return result, nil
	}

	logger.Info("sync completed",
		logging.Int("books", result.BookCount),
		logging.Duration("duration", result.Duration))
	if err := r.notifier.NotifySyncCompleted(ctx, account.Name, result.BookCount, result.Duration); err != nil {
		logger.Warn("failed to send completion notification", logging.Error(err))
	}
	return result, nil
}

func (r *Runner) runPipeline(ctx context.Context, account config.Account, opts RunOptions, result *Result, logger *slog.Logger) (*Result, error) {
	previous, err := r.states.Load(account.Name)
	if err != nil {
		return nil, fmt.Errorf("load sync state: %w", err)
	}

	exporter, err := r.clients.NewExporter(account)
	if err != nil {
		return nil, fmt.Errorf("build exporter: %w", err)
	}
	if err := exporter.Login(ctx); err != nil {
		return nil, err
	}
	raw, err := exporter.Export(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("export downloaded", logging.Int("bytes", len(raw)))

	records, err := library.Read(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if err := library.ValidateRecords(records); err != nil {
		return nil, err
	}
	result.BookCount = records.Count()
	logger.Info("export validated", logging.Int("books", result.BookCount))

	if r.cfg.Sync.ArchiveExports {
		r.archiveExport(account.Name, raw, logger)
	}

	if r.enricher != nil {
		stats, err := r.enricher.Enrich(ctx, records)
		if err != nil {
			return nil, fmt.Errorf("enrich export: %w", err)
		}
		result.Enrichment = stats
	}

	// The fingerprint covers the enriched payload, so newly resolved ISBNs
	// count as library changes and trigger an upload.
	payload, err := records.Bytes()
	if err != nil {
		return nil, fmt.Errorf("serialize enriched export: %w", err)
	}
	result.Hash = fingerprint.Bytes(payload)

	decision := syncstate.Decide(result.Hash, previous, opts.Force)
	result.Reason = decision.Reason
	if decision.Skip {
		result.Skipped = true
		return result, nil
	}
	if opts.DryRun {
		result.Skipped = true
		result.Reason = "dry run, would upload: " + decision.Reason
		return result, nil
	}
	logger.Info("upload required", logging.String("reason", decision.Reason))

	uploader, err := r.clients.NewUploader(account)
	if err != nil {
		return nil, fmt.Errorf("build uploader: %w", err)
	}
	if err := uploader.Login(ctx); err != nil {
		return nil, err
	}
	if err := uploader.Upload(ctx, "goodreads_export.csv", payload); err != nil {
		return nil, err
	}

	if err := r.states.Save(account.Name, result.Hash, result.BookCount); err != nil {
		return nil, fmt.Errorf("save sync state: %w", err)
	}
	return result, nil
}

// archiveExport keeps a timestamped copy of the raw export. Best effort: an
// archive failure never fails the run.
func (r *Runner) archiveExport(account string, raw []byte, logger *slog.Logger) {
	name := fmt.Sprintf("goodreads_export_%s_%s.csv", account, r.now().Format("20060102_150405"))
	path := filepath.Join(r.cfg.ExportDir(), name)
	if err := fileutil.WriteFileAtomic(path, raw, 0o644); err != nil {
		logger.Warn("failed to archive export", logging.Error(err))
		return
	}
	logger.Debug("archived export", logging.String("path", path))
}
