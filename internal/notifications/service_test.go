package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shelfsync/internal/config"
	"shelfsync/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifySyncCompleted(context.Background(), "primary", 42, time.Minute); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	type sent struct {
		title    string
		tags     string
		priority string
		body     string
	}

	tests := []struct {
		name   string
		notify func(svc notifications.Service) error
		expect sent
	}{
		{
			name: "sync started",
			notify: func(svc notifications.Service) error {
				return svc.NotifySyncStarted(context.Background(), "primary")
			},
			expect: sent{
				title: "shelfsync - Sync Started",
				tags:  "shelfsync,sync,started",
				body:  "Syncing library for account primary",
			},
		},
		{
			name: "sync completed",
			notify: func(svc notifications.Service) error {
				return svc.NotifySyncCompleted(context.Background(), "primary", 312, 95*time.Second)
			},
			expect: sent{
				title:    "shelfsync - Sync Complete",
				tags:     "shelfsync,sync,completed",
				priority: "high",
				body:     "Uploaded 312 books for primary in 1m35s",
			},
		},
		{
			name: "sync skipped",
			notify: func(svc notifications.Service) error {
				return svc.NotifySyncSkipped(context.Background(), "primary", "library unchanged since 2026-08-30T10:00:00Z")
			},
			expect: sent{
				title: "shelfsync - Sync Skipped",
				tags:  "shelfsync,sync,skipped",
				body:  "Skipped sync for primary: library unchanged since 2026-08-30T10:00:00Z",
			},
		},
		{
			name: "error",
			notify: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("login verification failed"), "goodreads export")
			},
			expect: sent{
				title:    "shelfsync - Error",
				tags:     "shelfsync,error,alert",
				priority: "high",
				body:     "Error with goodreads export: login verification failed",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured sent
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			if err := tc.notify(notifications.NewService(&cfg)); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			if captured != tc.expect {
				t.Fatalf("sent %+v, want %+v", captured, tc.expect)
			}
		})
	}
}

func TestNtfyServiceHonorsToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for suppressed notification: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Sync = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	if err := svc.NotifySyncStarted(context.Background(), "primary"); err != nil {
		t.Fatalf("suppressed sync notification returned error: %v", err)
	}
	if err := svc.NotifySyncSkipped(context.Background(), "primary", "reason"); err != nil {
		t.Fatalf("suppressed skip notification returned error: %v", err)
	}
	if err := svc.NotifyError(context.Background(), errors.New("boom"), "sync"); err != nil {
		t.Fatalf("suppressed error notification returned error: %v", err)
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx ntfy response")
	}
}
