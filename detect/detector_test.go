package detect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/roomsage/bookscan/browser"
	"github.com/roomsage/bookscan/models"
	"github.com/roomsage/bookscan/registry"
)

// fakeProber returns canned signals and counts invocations.
type fakeProber struct {
	mu      sync.Mutex
	calls   int
	signals *ProbeSignals
	err     error
}

func (f *fakeProber) Probe(ctx context.Context, pageURL string, reg *registry.Snapshot) (*ProbeSignals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.signals != nil {
		return f.signals, nil
	}
	return &ProbeSignals{}, nil
}

func (f *fakeProber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func serveHTML(t *testing.T, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

const bookingPage = `<html><head><title>Maple Inn</title></head><body>
<p>Call us at (555) 123-4567 or stay@mapleinn.example.com. 12 rooms.</p>
<a href="https://hotels.cloudbeds.com/reservation/abc">Book Now</a>
</body></html>`

const plainPage = `<html><head><title>Maple Inn</title></head><body>
<p>A quiet place in the hills.</p>
</body></html>`

func TestDetect_StaticHit(t *testing.T) {
	srv, _ := serveHTML(t, bookingPage)
	prober := &fakeProber{}
	d := newTestDetector(t, prober)

	o := d.Detect(context.Background(), models.SiteDescriptor{ID: "s1", Name: "Maple Inn", URL: srv.URL})
	if o.Failed() {
		t.Fatalf("unexpected failure: %+v", o.Error)
	}
	if o.EngineName != "Cloudbeds" || o.Method != models.MethodStaticHTML {
		t.Fatalf("got %q via %q", o.EngineName, o.Method)
	}
	if o.Contact.Phone == "" || o.Contact.Email != "stay@mapleinn.example.com" {
		t.Fatalf("contacts not extracted: %+v", o.Contact)
	}
	if o.RegistryVersion != registry.BuiltinVersion {
		t.Fatalf("RegistryVersion = %q", o.RegistryVersion)
	}
	if prober.callCount() != 0 {
		t.Fatal("static hit must not spend a browser context")
	}
}

func TestDetect_CacheReuse(t *testing.T) {
	srv, hits := serveHTML(t, bookingPage)
	d := newTestDetector(t, &fakeProber{})

	site := models.SiteDescriptor{ID: "s1", URL: srv.URL}
	first := d.Detect(context.Background(), site)
	second := d.Detect(context.Background(), models.SiteDescriptor{ID: "s2", URL: srv.URL})

	if first.EngineName != second.EngineName || second.Method != first.Method {
		t.Fatalf("cached verdict differs: %+v vs %+v", first, second)
	}
	if second.SiteID != "s2" {
		t.Fatalf("cached outcome must keep the new site identity, got %q", second.SiteID)
	}
	if hits.Load() != 2 {
		// The precheck still fetches; only the classification is reused.
		t.Fatalf("server hits = %d, want 2", hits.Load())
	}
}

func TestDetect_FingerprintCollapse(t *testing.T) {
	// Two URLs, same DOM template, no static evidence. The prober runs
	// once; the duplicate reuses the verdict by fingerprint.
	srvA, _ := serveHTML(t, plainPage)
	srvB, _ := serveHTML(t, plainPage)

	prober := &fakeProber{signals: &ProbeSignals{
		Click: &browser.ClickResult{Kind: browser.ClickPopup, URL: "https://hotels.cloudbeds.com/reservation/abc"},
	}}
	d := newTestDetector(t, prober)

	a := d.Detect(context.Background(), models.SiteDescriptor{ID: "a", URL: srvA.URL})
	b := d.Detect(context.Background(), models.SiteDescriptor{ID: "b", URL: srvB.URL})

	if a.EngineName != "Cloudbeds" || b.EngineName != "Cloudbeds" {
		t.Fatalf("engines: %q, %q", a.EngineName, b.EngineName)
	}
	if prober.callCount() != 1 {
		t.Fatalf("prober calls = %d, want 1 (duplicate collapsed)", prober.callCount())
	}
}

func TestDetect_StaticPageExternalHrefSkipsBrowser(t *testing.T) {
	page := `<html><head><title>Maple Inn</title></head><body>
<p>A quiet place in the hills with plenty of rooms and a long porch.
Breakfast is served from seven until ten in the dining room overlooking
the orchard. Each of our twelve rooms has a private bath, and the
carriage house sleeps six for family gatherings. Pets are welcome in
the garden rooms with advance notice.</p>
<a href="https://secure.obscurebookings.io/maple-inn">Book Now</a>
</body></html>`
	srv, _ := serveHTML(t, page)
	prober := &fakeProber{}
	d := newTestDetector(t, prober)

	o := d.Detect(context.Background(), models.SiteDescriptor{ID: "s1", URL: srv.URL})
	if o.EngineName != "obscurebookings.io" || !o.NeedsReview {
		t.Fatalf("got %q needsReview=%v", o.EngineName, o.NeedsReview)
	}
	if prober.callCount() != 0 {
		t.Fatal("resolvable static page must not spend a browser context")
	}
}

func TestDetect_TerminalFailureRemembered(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "gone", http.StatusGone)
	}))
	t.Cleanup(srv.Close)

	d := newTestDetector(t, &fakeProber{})
	site := models.SiteDescriptor{ID: "s1", URL: srv.URL}

	first := d.Detect(context.Background(), site)
	if first.Error == nil || first.Error.Code != models.ErrCodePrecheck {
		t.Fatalf("expected precheck_failed, got %+v", first.Error)
	}

	second := d.Detect(context.Background(), site)
	if second.Error == nil || second.Error.Code != models.ErrCodePrecheck {
		t.Fatalf("expected remembered failure, got %+v", second.Error)
	}
	if hits.Load() != 1 {
		t.Fatalf("server hits = %d, want 1 (memory must skip refetch)", hits.Load())
	}
}

func TestDetect_ProbeErrorEncoded(t *testing.T) {
	srv, _ := serveHTML(t, plainPage)
	prober := &fakeProber{err: models.NewDetectError(models.ErrCodeNavigation, "renderer crashed", nil)}
	d := newTestDetector(t, prober)

	o := d.Detect(context.Background(), models.SiteDescriptor{ID: "s1", URL: srv.URL})
	if o.Error == nil || o.Error.Code != models.ErrCodeNavigation {
		t.Fatalf("expected navigation_error, got %+v", o.Error)
	}
	if o.Found() {
		t.Fatal("failed site must not report an engine")
	}
}

func TestDetect_StaticOnlyFallbacks(t *testing.T) {
	page := `<html><body><iframe src="https://hotels.cloudbeds.com/widget"></iframe></body></html>`
	srv, _ := serveHTML(t, page)
	d := newTestDetector(t, nil)

	o := d.Detect(context.Background(), models.SiteDescriptor{ID: "s1", URL: srv.URL})
	if o.EngineName != "Cloudbeds" {
		t.Fatalf("EngineName = %q", o.EngineName)
	}
}
