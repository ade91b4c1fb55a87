package googlebooks_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"shelfsync/internal/lookup/googlebooks"
)

func TestSearchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/books/v1/volumes" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if q := r.URL.Query().Get("q"); q != "intitle:Dune inauthor:Frank Herbert" {
			t.Fatalf("unexpected query %q", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"totalItems": 1,
			"items": [{
				"volumeInfo": {
					"title": "Dune",
					"authors": ["Frank Herbert"],
					"industryIdentifiers": [
						{"type": "ISBN_10", "identifier": "0441013597"},
						{"type": "ISBN_13", "identifier": "9780441013593"},
						{"type": "OTHER", "identifier": "OCLC:1234"}
					]
				}
			}]
		}`))
	}))
	t.Cleanup(server.Close)

	client := googlebooks.New(googlebooks.WithBaseURL(server.URL))
	candidates, err := client.Search(context.Background(), "Dune", "Frank Herbert")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	// ISBN-13 identifiers come first; unknown identifier types are dropped.
	want := []string{"9780441013593", "0441013597"}
	got := candidates[0].ISBNs
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("ISBNs = %v, want %v", got, want)
	}
}

func TestSearchNoItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalItems": 0}`))
	}))
	t.Cleanup(server.Close)

	client := googlebooks.New(googlebooks.WithBaseURL(server.URL))
	candidates, err := client.Search(context.Background(), "Nothing", "Nobody")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected no candidates, got %v", candidates)
	}
}

func TestSearchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	client := googlebooks.New(googlebooks.WithBaseURL(server.URL))
	if _, err := client.Search(context.Background(), "Dune", "Frank Herbert"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestSearchEmptyTitle(t *testing.T) {
	client := googlebooks.New()
	if _, err := client.Search(context.Background(), "", "x"); err == nil {
		t.Fatal("expected error for empty title")
	}
}
