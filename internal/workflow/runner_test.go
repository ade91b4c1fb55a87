package workflow

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"shelfsync/internal/config"
	"shelfsync/internal/library"
	"shelfsync/internal/notifications"
	"shelfsync/internal/syncstate"
	"shelfsync/internal/testsupport"
)

const exportCSV = "Title,Author,ISBN,ISBN13\nDune,Frank Herbert,,\n"

type fakeExporter struct {
	csv      []byte
	loginErr error
	exports  int
}

func (f *fakeExporter) Login(context.Context) error { return f.loginErr }

func (f *fakeExporter) Export(context.Context) ([]byte, error) {
	f.exports++
	return f.csv, nil
}

type fakeUploader struct {
	uploadErr error
	uploads   [][]byte
}

func (f *fakeUploader) Login(context.Context) error { return nil }

func (f *fakeUploader) Upload(_ context.Context, _ string, csv []byte) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads = append(f.uploads, csv)
	return nil
}

type recordingNotifier struct {
	started   []string
	completed []string
	skipped   []string
	errored   []string
}

var _ notifications.Service = (*recordingNotifier)(nil)

func (n *recordingNotifier) NotifySyncStarted(_ context.Context, account string) error {
	n.started = append(n.started, account)
	return nil
}

func (n *recordingNotifier) NotifySyncCompleted(_ context.Context, account string, _ int, _ time.Duration) error {
	n.completed = append(n.completed, account)
	return nil
}

func (n *recordingNotifier) NotifySyncSkipped(_ context.Context, account, reason string) error {
	n.skipped = append(n.skipped, account+": "+reason)
	return nil
}

func (n *recordingNotifier) NotifyError(_ context.Context, err error, _ string) error {
	n.errored = append(n.errored, err.Error())
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

type staticResolver struct {
	answers map[string]string
}

func (s *staticResolver) CachedOnly(string, string) bool { return false }

func (s *staticResolver) LookupISBN(_ context.Context, title, _ string) (string, bool) {
	got, ok := s.answers[title]
	return got, ok
}

type fixture struct {
	cfg      *config.Config
	states   *syncstate.Store
	notifier *recordingNotifier
	exporter *fakeExporter
	uploader *fakeUploader
	runner   *Runner
}

func newFixture(t *testing.T, csv string, enricher *library.Enricher) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Sync.ArchiveExports = false

	f := &fixture{
		cfg:      cfg,
		states:   syncstate.NewStore(cfg.StateDir(), nil),
		notifier: &recordingNotifier{},
		exporter: &fakeExporter{csv: []byte(csv)},
		uploader: &fakeUploader{},
	}
	f.runner = NewRunner(cfg, f.states, enricher, f.notifier, Clients{
		NewExporter: func(config.Account) (Exporter, error) { return f.exporter, nil },
		NewUploader: func(config.Account) (Uploader, error) { return f.uploader, nil },
	}, nil)
	return f
}

func TestFirstRunUploadsAndSavesState(t *testing.T) {
	f := newFixture(t, exportCSV, nil)

	result, err := f.runner.RunAccount(context.Background(), f.cfg.Accounts[0], RunOptions{})
	if err != nil {
		t.Fatalf("RunAccount returned error: %v", err)
	}
	if result.Skipped {
		t.Fatalf("first run should upload, got skip with reason %q", result.Reason)
	}
	if len(f.uploader.uploads) != 1 {
		t.Fatalf("expected one upload, got %d", len(f.uploader.uploads))
	}
	if result.BookCount != 1 {
		t.Errorf("BookCount = %d, want 1", result.BookCount)
	}

	state, err := f.states.Load("primary")
	if err != nil || state == nil {
		t.Fatalf("state should be saved after upload, got (%v, %v)", state, err)
	}
	if state.LastHash != result.Hash {
		t.Errorf("saved hash %q does not match result hash %q", state.LastHash, result.Hash)
	}
	if len(f.notifier.completed) != 1 {
		t.Errorf("expected one completion notification, got %v", f.notifier.completed)
	}
}

func TestUnchangedLibrarySkipsUpload(t *testing.T) {
	f := newFixture(t, exportCSV, nil)
	ctx := context.Background()

	if _, err := f.runner.RunAccount(ctx, f.cfg.Accounts[0], RunOptions{}); err != nil {
		t.Fatal(err)
	}
	result, err := f.runner.RunAccount(ctx, f.cfg.Accounts[0], RunOptions{})
	if err != nil {
		t.Fatalf("second run returned error: %v", err)
	}
	if !result.Skipped {
		t.Fatal("second run with identical content should skip")
	}
	if !strings.Contains(result.Reason, "unchanged") {
		t.Errorf("reason = %q, want it to mention unchanged", result.Reason)
	}
	if len(f.uploader.uploads) != 1 {
		t.Errorf("expected no second upload, got %d", len(f.uploader.uploads))
	}
	if len(f.notifier.skipped) != 1 {
		t.Errorf("expected one skip notification, got %v", f.notifier.skipped)
	}
}

func TestForceUploadsDespiteUnchangedContent(t *testing.T) {
	f := newFixture(t, exportCSV, nil)
	ctx := context.Background()

	if _, err := f.runner.RunAccount(ctx, f.cfg.Accounts[0], RunOptions{}); err != nil {
		t.Fatal(err)
	}
	result, err := f.runner.RunAccount(ctx, f.cfg.Accounts[0], RunOptions{Force: true})
	if err != nil {
		t.Fatalf("forced run returned error: %v", err)
	}
	if result.Skipped {
		t.Fatal("forced run must not skip")
	}
	if len(f.uploader.uploads) != 2 {
		t.Errorf("expected two uploads, got %d", len(f.uploader.uploads))
	}
}

func TestChangedLibraryUploads(t *testing.T) {
	f := newFixture(t, exportCSV, nil)
	ctx := context.Background()

	if _, err := f.runner.RunAccount(ctx, f.cfg.Accounts[0], RunOptions{}); err != nil {
		t.Fatal(err)
	}

	f.exporter.csv = []byte(exportCSV + "Dune Messiah,Frank Herbert,,\n")
	result, err := f.runner.RunAccount(ctx, f.cfg.Accounts[0], RunOptions{})
	if err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if result.Skipped {
		t.Fatal("changed content should upload")
	}
	if result.BookCount != 2 {
		t.Errorf("BookCount = %d, want 2", result.BookCount)
	}
}

func TestUploadFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, exportCSV, nil)
	f.uploader.uploadErr = errors.New("import rejected")

	if _, err := f.runner.RunAccount(context.Background(), f.cfg.Accounts[0], RunOptions{}); err == nil {
		t.Fatal("expected upload error to propagate")
	}
	state, err := f.states.Load("primary")
	if err != nil {
		t.Fatal(err)
	}
	if state != nil {
		t.Fatal("state must not be saved when the upload failed")
	}
	if len(f.notifier.errored) != 1 {
		t.Errorf("expected one error notification, got %v", f.notifier.errored)
	}
}

func TestEnrichmentFlowsIntoUploadAndFingerprint(t *testing.T) {
	resolver := &staticResolver{answers: map[string]string{"Dune": "9780441013593"}}
	enricher := library.NewEnricher(resolver, 0, nil)
	f := newFixture(t, exportCSV, enricher)

	result, err := f.runner.RunAccount(context.Background(), f.cfg.Accounts[0], RunOptions{})
	if err != nil {
		t.Fatalf("RunAccount returned error: %v", err)
	}
	if result.Enrichment.Found != 1 {
		t.Errorf("enrichment stats = %+v, want one found", result.Enrichment)
	}
	if len(f.uploader.uploads) != 1 {
		t.Fatal("expected one upload")
	}
	uploaded := string(f.uploader.uploads[0])
	if !strings.Contains(uploaded, `=""9780441013593""`) {
		t.Errorf("uploaded csv should carry the resolved literal, got %q", uploaded)
	}

	// A bare re-export hashes differently only until enrichment fills the
	// same ISBN again; identical enriched output must skip.
	second, err := f.runner.RunAccount(context.Background(), f.cfg.Accounts[0], RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !second.Skipped {
		t.Error("identical enriched content should skip on the second run")
	}
}

func TestDryRunWithholdsUploadAndState(t *testing.T) {
	f := newFixture(t, exportCSV, nil)

	result, err := f.runner.RunAccount(context.Background(), f.cfg.Accounts[0], RunOptions{DryRun: true})
	if err != nil {
		t.Fatalf("dry run returned error: %v", err)
	}
	if !result.Skipped || !strings.Contains(result.Reason, "dry run") {
		t.Fatalf("result = %+v, want a dry-run skip", result)
	}
	if len(f.uploader.uploads) != 0 {
		t.Errorf("dry run must not upload, got %d uploads", len(f.uploader.uploads))
	}
	state, err := f.states.Load("primary")
	if err != nil {
		t.Fatal(err)
	}
	if state != nil {
		t.Error("dry run must not save state")
	}
}

func TestInvalidExportFailsRun(t *testing.T) {
	f := newFixture(t, "Title,Author,ISBN,ISBN13\n", nil)
	if _, err := f.runner.RunAccount(context.Background(), f.cfg.Accounts[0], RunOptions{}); err == nil {
		t.Fatal("expected error for export with no data rows")
	}
}

func TestArchiveExportWritesCopy(t *testing.T) {
	f := newFixture(t, exportCSV, nil)
	f.cfg.Sync.ArchiveExports = true

	if _, err := f.runner.RunAccount(context.Background(), f.cfg.Accounts[0], RunOptions{}); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(f.cfg.ExportDir())
	if err != nil {
		t.Fatalf("export dir should exist: %v", err)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "goodreads_export_primary_") {
		t.Errorf("unexpected archive contents: %v", entries)
	}
}

func TestRunAllContinuesPastFailingAccount(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAccounts(
		config.Account{Name: "broken"},
		config.Account{Name: "healthy"},
	))
	cfg.Sync.ArchiveExports = false

	notifier := &recordingNotifier{}
	states := syncstate.NewStore(cfg.StateDir(), nil)
	uploader := &fakeUploader{}
	runner := NewRunner(cfg, states, nil, notifier, Clients{
		NewExporter: func(account config.Account) (Exporter, error) {
			if account.Name == "broken" {
				return &fakeExporter{loginErr: errors.New("bad credentials")}, nil
			}
			return &fakeExporter{csv: []byte(exportCSV)}, nil
		},
		NewUploader: func(config.Account) (Uploader, error) { return uploader, nil },
	}, nil)

	results, err := runner.RunAll(context.Background(), RunOptions{})
	if err == nil {
		t.Fatal("expected joined error for the broken account")
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("error = %v, want it to name the broken account", err)
	}
	if len(results) != 1 || results[0].Account != "healthy" {
		t.Fatalf("results = %+v, want only the healthy account", results)
	}
	if len(uploader.uploads) != 1 {
		t.Errorf("healthy account should still upload, got %d uploads", len(uploader.uploads))
	}
}
