package detect

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/roomsage/bookscan/cache"
	"github.com/roomsage/bookscan/fetch"
	"github.com/roomsage/bookscan/models"
	"github.com/roomsage/bookscan/registry"
)

func newTestDetector(t *testing.T, prober Prober) *Detector {
	t.Helper()
	mem := NewMemory(10 * time.Minute)
	t.Cleanup(mem.Stop)
	return NewDetector(
		fetch.NewClient(""),
		registry.NewStore(registry.Builtin()),
		DefaultFilters(),
		mem,
		cache.New(100),
		prober,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		host    string
		wantErr bool
	}{
		{in: "mapleinn.com", want: "https://mapleinn.com", host: "mapleinn.com"},
		{in: "  HTTP://MapleInn.com/rooms ", want: "http://mapleinn.com/rooms", host: "mapleinn.com"},
		{in: "https://www.mapleinn.com/", want: "https://www.mapleinn.com/", host: "www.mapleinn.com"},
		{in: "", wantErr: true},
		{in: "ftp://mapleinn.com", wantErr: true},
		{in: "not a url at all", wantErr: true},
		{in: "https://localhost", wantErr: true},
	}
	for _, tt := range tests {
		got, host, err := NormalizeURL(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizeURL(%q): expected error, got %q", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeURL(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want || host != tt.host {
			t.Errorf("NormalizeURL(%q) = %q, %q; want %q, %q", tt.in, got, host, tt.want, tt.host)
		}
	}
}

func TestPrecheck_SkipCodes(t *testing.T) {
	d := newTestDetector(t, nil)

	tests := []struct {
		url  string
		code string
	}{
		{url: "https://www.marriott.com/some-hotel", code: models.ErrCodeSkipChain},
		{url: "https://www.facebook.com/mapleinn", code: models.ErrCodeSkipJunkDomain},
		{url: "https://parks.exagov.gov/lodge", code: models.ErrCodeSkipJunkDomain},
		{url: "://broken", code: models.ErrCodePrecheck},
	}
	for _, tt := range tests {
		_, err := d.Precheck(context.Background(), models.SiteDescriptor{ID: "s1", URL: tt.url})
		var de *models.DetectError
		if !errors.As(err, &de) {
			t.Fatalf("Precheck(%q): expected DetectError, got %v", tt.url, err)
		}
		if de.Code != tt.code {
			t.Errorf("Precheck(%q) code = %q, want %q", tt.url, de.Code, tt.code)
		}
		if !de.Terminal() {
			t.Errorf("Precheck(%q): %q should be terminal", tt.url, de.Code)
		}
	}
}

func TestPrecheck_MemoryHit(t *testing.T) {
	d := newTestDetector(t, nil)
	d.memory.Set("gone.example.com", models.ErrCodePrecheck)

	_, err := d.Precheck(context.Background(), models.SiteDescriptor{URL: "https://gone.example.com"})
	var de *models.DetectError
	if !errors.As(err, &de) || de.Code != models.ErrCodePrecheck {
		t.Fatalf("expected remembered precheck_failed, got %v", err)
	}
}

func TestPrecheck_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	d := newTestDetector(t, nil)
	_, err := d.Precheck(context.Background(), models.SiteDescriptor{URL: srv.URL + "/x.example.com"})
	var de *models.DetectError
	if !errors.As(err, &de) || de.Code != models.ErrCodePrecheck {
		t.Fatalf("expected precheck_failed for dead server, got %v", err)
	}
}

func TestPrecheck_NameMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Crazy Ed's Auto Parts</title></head><body><p>Brake pads and rotors.</p></body></html>`))
	}))
	defer srv.Close()

	d := newTestDetector(t, nil)
	_, err := d.Precheck(context.Background(), models.SiteDescriptor{
		Name: "The Maple Ridge Inn",
		URL:  srv.URL + "/home.example.com",
	})
	var de *models.DetectError
	if !errors.As(err, &de) || de.Code != models.ErrCodeLocationMismatch {
		t.Fatalf("expected location_mismatch, got %v", err)
	}
}

func TestPrecheck_NameMatchesPartially(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Welcome</title></head><body><h1>Maple Ridge, established 1922</h1></body></html>`))
	}))
	defer srv.Close()

	d := newTestDetector(t, nil)
	pre, err := d.Precheck(context.Background(), models.SiteDescriptor{
		Name: "The Maple Ridge Inn",
		URL:  srv.URL + "/home.example.com",
	})
	if err != nil {
		t.Fatalf("Precheck: %v", err)
	}
	if pre.Page == nil || pre.Page.Title != "Welcome" {
		t.Fatalf("unexpected page: %+v", pre.Page)
	}
}
