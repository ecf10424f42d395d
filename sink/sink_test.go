package sink

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/roomsage/bookscan/models"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func sampleOutcome() *models.DetectionOutcome {
	return &models.DetectionOutcome{
		SiteID:          "s1",
		SiteName:        "Maple Inn",
		URL:             "https://mapleinn.example.com",
		EngineName:      "Cloudbeds",
		EngineDomain:    "cloudbeds.com",
		BookingURL:      "https://hotels.cloudbeds.com/reservation/abc",
		Tier:            1,
		Method:          models.MethodStaticHTML,
		Contact:         models.Contact{Phone: "(555) 123-4567", Email: "stay@mapleinn.example.com"},
		RegistryVersion: "test-1",
		DetectedAt:      time.Now().UTC(),
		DurationMs:      1234,
	}
}

func TestJSONLSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONL(&buf)

	if err := s.Write(context.Background(), sampleOutcome()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write(context.Background(), sampleOutcome()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	var decoded models.DetectionOutcome
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("line is not valid JSON: %v", err)
	}
	if decoded.EngineName != "Cloudbeds" {
		t.Fatalf("EngineName = %q", decoded.EngineName)
	}
}

type failingSink struct{ err error }

func (f *failingSink) Write(ctx context.Context, o *models.DetectionOutcome) error { return f.err }
func (f *failingSink) Close() error                                                { return nil }

func TestMultiSink(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("disk full")
	m := NewMulti(&failingSink{err: boom}, NewJSONL(&buf))

	err := m.Write(context.Background(), sampleOutcome())
	if !errors.Is(err, boom) {
		t.Fatalf("want first error, got %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("second sink must still receive the outcome")
	}
}

func TestSQLiteSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outcomes.db")
	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer s.Close()

	if err := s.Write(context.Background(), sampleOutcome()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	failed := sampleOutcome()
	failed.EngineName = ""
	failed.Method = models.MethodNoneFound
	failed.Error = &models.ErrorDetail{Code: models.ErrCodeTimeout, Message: "deadline"}
	if err := s.Write(context.Background(), failed); err != nil {
		t.Fatalf("Write failed outcome: %v", err)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM outcomes").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	var engine, errCode string
	err = s.db.QueryRow("SELECT engine_name, error_code FROM outcomes WHERE site_id = 's1' AND error_code != ''").Scan(&engine, &errCode)
	if err != nil {
		t.Fatalf("query failed row: %v", err)
	}
	if engine != "" || errCode != models.ErrCodeTimeout {
		t.Fatalf("engine=%q code=%q", engine, errCode)
	}
}

func TestNotifier_Signature(t *testing.T) {
	const secret = "s3cret"
	var gotSig string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Bookscan-Signature")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, secret, discardLogger())
	event := &Event{Type: "batch.completed", BatchID: "b1", Timestamp: time.Now().Unix()}
	if err := n.Deliver(context.Background(), event); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if gotSig != want {
		t.Fatalf("signature = %q, want %q", gotSig, want)
	}
}

func TestNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, "", discardLogger())
	if err := n.Deliver(context.Background(), &Event{Type: "site.classified"}); err == nil {
		t.Fatal("expected error for 502 response")
	}
}
