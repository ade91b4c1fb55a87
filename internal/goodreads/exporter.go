// Package goodreads drives the Goodreads web export flow: log in with a
// persisted session or credentials, trigger a library export, poll until the
// download link appears, and fetch the CSV.
package goodreads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"shelfsync/internal/logging"
	"shelfsync/internal/session"
)

// ErrExport tags failures in the login/export/download flow.
var ErrExport = errors.New("goodreads export failed")

const (
	siteName      = "goodreads"
	defaultBase   = "https://www.goodreads.com"
	signInPath    = "/user/sign_in"
	exportPath    = "/review/import"
	triggerPath   = "/review_porter/export"
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	loggedInQuery = `a[href*="sign_out"], .siteHeader__personal`
)

// Options configures an exporter.
type Options struct {
	BaseURL        string
	Email          string
	Password       string
	Account        string
	Sessions       *session.Store
	RequestTimeout time.Duration
	PollInterval   time.Duration
	ExportTimeout  time.Duration
	DebugDir       string
	Logger         *slog.Logger
}

// Exporter is a logged-in Goodreads HTTP client for one account.
type Exporter struct {
	http     *resty.Client
	base     *url.URL
	opts     Options
	logger   *slog.Logger
	loggedIn bool
	sleep    func(ctx context.Context, d time.Duration)
}

// New builds an exporter. It does not touch the network; call Login first.
func New(opts Options) (*Exporter, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBase
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.ExportTimeout <= 0 {
		opts.ExportTimeout = 5 * time.Minute
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	client.SetCookieJar(jar)
	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	if opts.RequestTimeout > 0 {
		client.SetTimeout(opts.RequestTimeout)
	}

	return &Exporter{
		http:   client,
		base:   base,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "goodreads"),
		sleep:  sleepContext,
	}, nil
}

// Login establishes an authenticated session, preferring persisted cookies
// and falling back to a credential login.
func (e *Exporter) Login(ctx context.Context) error {
	if e.opts.Sessions != nil && e.opts.Sessions.Load(siteName, e.opts.Account, e.http.GetClient().Jar, e.base) {
		ok, err := e.isLoggedIn(ctx)
		if err != nil {
			return err
		}
		if ok {
			e.logger.Info("using stored session", logging.String(logging.FieldAccount, e.opts.Account))
			e.loggedIn = true
			return nil
		}
		e.logger.Info("stored session expired, logging in with credentials")
	}

	if err := e.credentialLogin(ctx); err != nil {
		return err
	}
	e.loggedIn = true

	if e.opts.Sessions != nil {
		if err := e.opts.Sessions.Save(siteName, e.opts.Account, e.http.GetClient().Jar, e.base); err != nil {
			e.logger.Warn("failed to persist session", logging.Error(err))
		}
	}
	return nil
}

func (e *Exporter) credentialLogin(ctx context.Context) error {
	res, err := e.http.R().SetContext(ctx).Get(signInPath)
	if err != nil {
		return fmt.Errorf("%w: fetch sign-in page: %w", ErrExport, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return fmt.Errorf("%w: parse sign-in page: %w", ErrExport, err)
	}

	// The sign-in page hosts an Amazon-style form. Carry every hidden input
	// through so tokens and workflow state survive the round trip.
	form := doc.Find("form").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find(`input[type="email"], input[name="email"]`).Length() > 0 &&
			s.Find(`input[type="password"]`).Length() > 0
	}).First()
	if form.Length() == 0 {
		e.dumpHTML("login_form_missing", res.Body())
		return fmt.Errorf("%w: no credential form on sign-in page", ErrExport)
	}

	fields := map[string]string{}
	form.Find(`input[type="hidden"]`).Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok || name == "" {
			return
		}
		fields[name] = s.AttrOr("value", "")
	})
	emailField := form.Find(`input[type="email"], input[name="email"]`).First().AttrOr("name", "email")
	passwordField := form.Find(`input[type="password"]`).First().AttrOr("name", "password")
	fields[emailField] = e.opts.Email
	fields[passwordField] = e.opts.Password

	action := form.AttrOr("action", signInPath)
	res, err = e.http.R().SetContext(ctx).SetFormData(fields).Post(action)
	if err != nil {
		return fmt.Errorf("%w: submit credentials: %w", ErrExport, err)
	}

	ok, err := e.isLoggedIn(ctx)
	if err != nil {
		return err
	}
	if !ok {
		e.dumpHTML("login_failed", res.Body())
		return fmt.Errorf("%w: login verification failed for account %q", ErrExport, e.opts.Account)
	}
	e.logger.Info("login successful", logging.String(logging.FieldAccount, e.opts.Account))
	return nil
}

func (e *Exporter) isLoggedIn(ctx context.Context) (bool, error) {
	res, err := e.http.R().SetContext(ctx).Get("/")
	if err != nil {
		return false, fmt.Errorf("%w: fetch home page: %w", ErrExport, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return false, fmt.Errorf("%w: parse home page: %w", ErrExport, err)
	}
	return doc.Find(loggedInQuery).Length() > 0, nil
}

// Export triggers a fresh library export if one is not already available,
// waits for the download link, and returns the CSV payload.
func (e *Exporter) Export(ctx context.Context) ([]byte, error) {
	if !e.loggedIn {
		return nil, fmt.Errorf("%w: not logged in", ErrExport)
	}

	link, body, err := e.findDownloadLink(ctx)
	if err != nil {
		return nil, err
	}
	if link == "" {
		e.logger.Info("triggering export")
		if _, err := e.http.R().SetContext(ctx).Post(triggerPath); err != nil {
			return nil, fmt.Errorf("%w: trigger export: %w", ErrExport, err)
		}
		link, body, err = e.waitForDownloadLink(ctx)
		if err != nil {
			return nil, err
		}
	}
	if link == "" {
		e.dumpHTML("export_link_missing", body)
		return nil, fmt.Errorf("%w: export did not complete within %s", ErrExport, e.opts.ExportTimeout)
	}

	e.logger.Info("downloading export", logging.String("link", link))
	res, err := e.http.R().SetContext(ctx).Get(link)
	if err != nil {
		return nil, fmt.Errorf("%w: download export: %w", ErrExport, err)
	}
	if res.StatusCode() >= 400 {
		return nil, fmt.Errorf("%w: download export: status %d", ErrExport, res.StatusCode())
	}
	return res.Body(), nil
}

// findDownloadLink loads the export page once and extracts the CSV link if
// Goodreads already has a finished export waiting.
func (e *Exporter) findDownloadLink(ctx context.Context) (string, []byte, error) {
	res, err := e.http.R().SetContext(ctx).Get(exportPath)
	if err != nil {
		return "", nil, fmt.Errorf("%w: fetch export page: %w", ErrExport, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return "", nil, fmt.Errorf("%w: parse export page: %w", ErrExport, err)
	}

	var link string
	doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok {
			return true
		}
		if strings.Contains(href, "export") && strings.HasSuffix(strings.ToLower(href), ".csv") {
			link = href
			return false
		}
		return true
	})
	return link, res.Body(), nil
}

// waitForDownloadLink polls the export page until the CSV link shows up or
// the export timeout elapses. Large libraries can take a while server-side.
func (e *Exporter) waitForDownloadLink(ctx context.Context) (string, []byte, error) {
	deadline := time.Now().Add(e.opts.ExportTimeout)
	var body []byte
	for {
		link, pageBody, err := e.findDownloadLink(ctx)
		if err != nil {
			return "", nil, err
		}
		body = pageBody
		if link != "" {
			return link, body, nil
		}
		if time.Now().After(deadline) {
			return "", body, nil
		}
		if err := ctx.Err(); err != nil {
			return "", body, fmt.Errorf("%w: %w", ErrExport, err)
		}
		e.logger.Debug("export not ready, polling",
			logging.Duration("interval", e.opts.PollInterval))
		e.sleep(ctx, e.opts.PollInterval)
	}
}

// dumpHTML writes a page snapshot for debugging failed scrapes. Best effort.
func (e *Exporter) dumpHTML(name string, body []byte) {
	if e.opts.DebugDir == "" || len(body) == 0 {
		return
	}
	if err := os.MkdirAll(e.opts.DebugDir, 0o755); err != nil {
		return
	}
	path := filepath.Join(e.opts.DebugDir, fmt.Sprintf("goodreads_%s_%s.html", name, time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, body, 0o644); err == nil {
		e.logger.Info("saved page snapshot", logging.String("path", path))
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
