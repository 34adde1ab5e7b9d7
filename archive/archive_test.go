package archive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handlers map[string]http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	c := New()
	c.BaseURL = srv.URL
	return c
}

func jsonHandler(v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
}

func searchResponse(docs ...map[string]any) map[string]any {
	return map[string]any{"response": map[string]any{"docs": docs}}
}

func metadataResponse(names ...string) map[string]any {
	files := make([]map[string]any, 0, len(names))
	for _, n := range names {
		files = append(files, map[string]any{"name": n})
	}
	return map[string]any{"files": files}
}

func TestSearchPublicDomain(t *testing.T) {
	c := newTestClient(t, map[string]http.HandlerFunc{
		"/advancedsearch.php": func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query().Get("q")
			if !strings.Contains(q, "licenseurl:*") {
				t.Errorf("query missing license filter: %q", q)
			}
			if r.URL.Query().Get("output") != "json" {
				t.Errorf("expected output=json")
			}
			jsonHandler(searchResponse(
				map[string]any{"identifier": "nosferatu1922", "title": "Nosferatu", "year": 1922, "licenseurl": "https://creativecommons.org/publicdomain/mark/1.0/"},
			))(w, r)
		},
		"/metadata/nosferatu1922": jsonHandler(metadataResponse(
			"nosferatu.mp4", "nosferatu.ogv", "cover.jpg", "nosferatu.mp4.thumbs",
		)),
	})

	items, err := c.SearchPublicDomain(context.Background(), "Nosferatu", 5)
	if err != nil {
		t.Fatalf("SearchPublicDomain() error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	it := items[0]
	if it.LicenseURL == "" {
		t.Errorf("item surfaced without license URL")
	}
	if it.Year != "1922" {
		t.Errorf("Year = %q, want 1922", it.Year)
	}
	if len(it.Links) != 2 {
		t.Fatalf("got %d links, want 2 (video files only): %v", len(it.Links), it.Links)
	}
	for _, l := range it.Links {
		if !strings.Contains(l, "/download/nosferatu1922/") {
			t.Errorf("unexpected link %q", l)
		}
	}
}

func TestSearchDropsItemsWithoutLicense(t *testing.T) {
	c := newTestClient(t, map[string]http.HandlerFunc{
		"/advancedsearch.php": jsonHandler(searchResponse(
			map[string]any{"identifier": "unlicensed", "title": "Sketchy", "licenseurl": ""},
			map[string]any{"identifier": "licensed", "title": "Fine", "year": "1940", "licenseurl": "https://example.org/license"},
		)),
		"/metadata/licensed": jsonHandler(metadataResponse("fine.webm")),
	})
	items, err := c.SearchPublicDomain(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("SearchPublicDomain() error: %v", err)
	}
	if len(items) != 1 || items[0].Identifier != "licensed" {
		t.Fatalf("license filter failed: %+v", items)
	}
}

func TestSearchDropsItemsWithoutVideoFiles(t *testing.T) {
	c := newTestClient(t, map[string]http.HandlerFunc{
		"/advancedsearch.php": jsonHandler(searchResponse(
			map[string]any{"identifier": "audio-only", "title": "Radio Play", "licenseurl": "https://example.org/license"},
		)),
		"/metadata/audio-only": jsonHandler(metadataResponse("play.mp3", "notes.txt")),
	})
	items, err := c.SearchPublicDomain(context.Background(), "radio", 5)
	if err != nil {
		t.Fatalf("SearchPublicDomain() error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items, got %+v", items)
	}
}

func TestSearchLimitsLinks(t *testing.T) {
	names := []string{"a.mp4", "b.mp4", "c.mp4", "d.mp4", "e.mp4", "f.mp4", "g.mp4"}
	c := newTestClient(t, map[string]http.HandlerFunc{
		"/advancedsearch.php": jsonHandler(searchResponse(
			map[string]any{"identifier": "many-files", "title": "Serial", "licenseurl": "https://example.org/license"},
		)),
		"/metadata/many-files": jsonHandler(metadataResponse(names...)),
	})
	items, err := c.SearchPublicDomain(context.Background(), "serial", 5)
	if err != nil {
		t.Fatalf("SearchPublicDomain() error: %v", err)
	}
	if len(items) != 1 || len(items[0].Links) != maxLinksPerItem {
		t.Errorf("expected %d links, got %+v", maxLinksPerItem, items)
	}
}

func TestSearchNoResultsIsNotAnError(t *testing.T) {
	c := newTestClient(t, map[string]http.HandlerFunc{
		"/advancedsearch.php": jsonHandler(searchResponse()),
	})
	items, err := c.SearchPublicDomain(context.Background(), "extremely obscure", 5)
	if err != nil {
		t.Fatalf("expected no error for empty result, got %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty items")
	}
}

func TestSearchUpstreamError(t *testing.T) {
	c := newTestClient(t, map[string]http.HandlerFunc{
		"/advancedsearch.php": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
		},
	})
	_, err := c.SearchPublicDomain(context.Background(), "anything", 5)
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

func TestBrokenMetadataSkipsItem(t *testing.T) {
	c := newTestClient(t, map[string]http.HandlerFunc{
		"/advancedsearch.php": jsonHandler(searchResponse(
			map[string]any{"identifier": "broken", "title": "Broken", "licenseurl": "https://example.org/license"},
			map[string]any{"identifier": "ok", "title": "OK", "licenseurl": "https://example.org/license"},
		)),
		"/metadata/broken": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "oops", http.StatusInternalServerError)
		},
		"/metadata/ok": jsonHandler(metadataResponse("ok.m4v")),
	})
	items, err := c.SearchPublicDomain(context.Background(), "whatever", 5)
	if err != nil {
		t.Fatalf("SearchPublicDomain() error: %v", err)
	}
	if len(items) != 1 || items[0].Identifier != "ok" {
		t.Errorf("expected only the healthy item, got %+v", items)
	}
}
