// Package storygraph drives the StoryGraph import flow: log in with a
// persisted session or credentials, then submit the enriched CSV through the
// site's import form. StoryGraph processes imports asynchronously, so a
// successful upload means "queued", not "imported".
package storygraph

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

// ErrUpload tags failures in the login/upload flow.
var ErrUpload = errors.New("storygraph upload failed")

const (
	siteName      = "storygraph"
	defaultBase   = "https://app.thestorygraph.com"
	signInPath    = "/users/sign_in"
	importPath    = "/import-export"
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	loggedInQuery = `a[href*="sign_out"], a[href="/signout"]`
)

// acceptedMarkers are the phrases StoryGraph shows once an import has been
// queued for asynchronous processing.
var acceptedMarkers = []string{"queued", "submitted", "will receive an email", "processing"}

// Options configures an uploader.
type Options struct {
	BaseURL        string
	Email          string
	Password       string
	Account        string
	Sessions       *session.Store
	RequestTimeout time.Duration
	DebugDir       string
	Logger         *slog.Logger
}

// Uploader is a logged-in StoryGraph HTTP client for one account.
type Uploader struct {
	http     *resty.Client
	base     *url.URL
	opts     Options
	logger   *slog.Logger
	loggedIn bool
}

// New builds an uploader. It does not touch the network; call Login first.
func New(opts Options) (*Uploader, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBase
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
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

	return &Uploader{
		http:   client,
		base:   base,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "storygraph"),
	}, nil
}

// Login establishes an authenticated session, preferring persisted cookies
// and falling back to a credential login.
func (u *Uploader) Login(ctx context.Context) error {
	if u.opts.Sessions != nil && u.opts.Sessions.Load(siteName, u.opts.Account, u.http.GetClient().Jar, u.base) {
		ok, err := u.isLoggedIn(ctx)
		if err != nil {
			return err
		}
		if ok {
			u.logger.Info("using stored session", logging.String(logging.FieldAccount, u.opts.Account))
			u.loggedIn = true
			return nil
		}
		u.logger.Info("stored session expired, logging in with credentials")
	}

	if err := u.credentialLogin(ctx); err != nil {
		return err
	}
	u.loggedIn = true

	if u.opts.Sessions != nil {
		if err := u.opts.Sessions.Save(siteName, u.opts.Account, u.http.GetClient().Jar, u.base); err != nil {
			u.logger.Warn("failed to persist session", logging.Error(err))
		}
	}
	return nil
}

func (u *Uploader) credentialLogin(ctx context.Context) error {
	res, err := u.http.R().SetContext(ctx).Get(signInPath)
	if err != nil {
		return fmt.Errorf("%w: fetch sign-in page: %w", ErrUpload, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return fmt.Errorf("%w: parse sign-in page: %w", ErrUpload, err)
	}

	token := doc.Find(`input[name="authenticity_token"]`).First().AttrOr("value", "")
	if token == "" {
		u.dumpHTML("login_token_missing", res.Body())
		return fmt.Errorf("%w: no authenticity token on sign-in page", ErrUpload)
	}
	action := doc.Find(`input[name="authenticity_token"]`).First().Closest("form").AttrOr("action", signInPath)

	res, err = u.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"authenticity_token": token,
			"user[email]":        u.opts.Email,
			"user[password]":     u.opts.Password,
		}).
		Post(action)
	if err != nil {
		return fmt.Errorf("%w: submit credentials: %w", ErrUpload, err)
	}

	ok, err := u.isLoggedIn(ctx)
	if err != nil {
		return err
	}
	if !ok {
		u.dumpHTML("login_failed", res.Body())
		return fmt.Errorf("%w: login verification failed for account %q", ErrUpload, u.opts.Account)
	}
	u.logger.Info("login successful", logging.String(logging.FieldAccount, u.opts.Account))
	return nil
}

func (u *Uploader) isLoggedIn(ctx context.Context) (bool, error) {
	res, err := u.http.R().SetContext(ctx).Get("/")
	if err != nil {
		return false, fmt.Errorf("%w: fetch home page: %w", ErrUpload, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return false, fmt.Errorf("%w: parse home page: %w", ErrUpload, err)
	}
	return doc.Find(loggedInQuery).Length() > 0, nil
}

// Upload submits the CSV payload through the import form and verifies the
// site acknowledged it.
func (u *Uploader) Upload(ctx context.Context, filename string, csv []byte) error {
	if !u.loggedIn {
		return fmt.Errorf("%w: not logged in", ErrUpload)
	}

	res, err := u.http.R().SetContext(ctx).Get(importPath)
	if err != nil {
		return fmt.Errorf("%w: fetch import page: %w", ErrUpload, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return fmt.Errorf("%w: parse import page: %w", ErrUpload, err)
	}

	form := doc.Find("form").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find(`input[type="file"]`).Length() > 0
	}).First()
	if form.Length() == 0 {
		u.dumpHTML("import_form_missing", res.Body())
		return fmt.Errorf("%w: no upload form on import page", ErrUpload)
	}
	fileField := form.Find(`input[type="file"]`).First().AttrOr("name", "file")
	token := form.Find(`input[name="authenticity_token"]`).First().AttrOr("value", "")
	action := form.AttrOr("action", importPath)

	request := u.http.R().
		SetContext(ctx).
		SetFileReader(fileField, filename, bytes.NewReader(csv))
	if token != "" {
		request.SetFormData(map[string]string{"authenticity_token": token})
	}

	u.logger.Info("uploading csv",
		logging.String(logging.FieldAccount, u.opts.Account),
		logging.Int("bytes", len(csv)))
	res, err = request.Post(action)
	if err != nil {
		return fmt.Errorf("%w: submit import: %w", ErrUpload, err)
	}
	if res.StatusCode() >= 400 {
		u.dumpHTML("upload_rejected", res.Body())
		return fmt.Errorf("%w: import submission returned status %d", ErrUpload, res.StatusCode())
	}

	if !importAccepted(res.Body()) {
		u.dumpHTML("upload_unconfirmed", res.Body())
		return fmt.Errorf("%w: no submission confirmation on response page", ErrUpload)
	}
	u.logger.Info("import submitted, processing asynchronously")
	return nil
}

func importAccepted(body []byte) bool {
	page := strings.ToLower(string(body))
	for _, marker := range acceptedMarkers {
		if strings.Contains(page, marker) {
			return true
		}
	}
	return false
}

// dumpHTML writes a page snapshot for debugging failed scrapes. Best effort.
func (u *Uploader) dumpHTML(name string, body []byte) {
	if u.opts.DebugDir == "" || len(body) == 0 {
		return
	}
	if err := os.MkdirAll(u.opts.DebugDir, 0o755); err != nil {
		return
	}
	path := filepath.Join(u.opts.DebugDir, fmt.Sprintf("storygraph_%s_%s.html", name, time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, body, 0o644); err == nil {
		u.logger.Info("saved page snapshot", logging.String("path", path))
	}
}
