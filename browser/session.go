// Package browser manages the pooled rod execution contexts, navigation
// with timeout handling, passive network observation, and the book-now
// interaction simulator.
package browser

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/roomsage/bookscan/models"
)

// Config controls the shared browser and its context pool.
type Config struct {
	Headless  bool
	NoSandbox bool
	Bin       string
	Proxy     string

	// PoolSize is the maximum number of concurrently held contexts.
	// It is tunable independently of worker concurrency.
	PoolSize int
}

// ContextHandle wraps one pooled page with health tracking. A handle is
// exclusively owned by one in-flight site between Acquire and Release.
type ContextHandle struct {
	id       int64
	page     *rod.Page
	errScore float64
	useCount int
	created  time.Time
	mu       sync.Mutex
}

// Page returns the underlying rod page.
func (h *ContextHandle) Page() *rod.Page { return h.page }

func (h *ContextHandle) recordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.useCount++
	if h.errScore > 0.5 {
		h.errScore -= 0.5
	} else {
		h.errScore = 0
	}
}

func (h *ContextHandle) recordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.useCount++
	h.errScore += 1.0
}

// shouldRetire applies the health rules: too many errors, too many uses,
// or too old. Retired contexts are closed and replaced.
func (h *ContextHandle) shouldRetire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.errScore >= 3.0 {
		return true
	}
	if h.useCount >= 50 {
		return true
	}
	if time.Since(h.created) >= 50*time.Minute {
		return true
	}
	return false
}

// Sessions launches one shared browser and hands out isolated contexts
// from a fixed-size pool. Acquisition blocks when the pool is exhausted.
type Sessions struct {
	browser *rod.Browser
	cfg     Config

	idle    chan *ContextHandle
	mu      sync.Mutex
	total   int
	nextID  atomic.Int64
	active  atomic.Int32
	closing atomic.Bool

	// newHandleFn creates pool contexts. It defaults to newHandle;
	// fault-injection tests swap it to exercise pool accounting without
	// a live browser.
	newHandleFn func() (*ContextHandle, error)
}

// NewSessions launches a headless browser and prepares the context pool.
// Contexts are created lazily up to cfg.PoolSize.
func NewSessions(cfg Config) (*Sessions, error) {
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}

	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewDetectError(models.ErrCodeInternal, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	br := rod.New().ControlURL(controlURL)
	if err := br.Connect(); err != nil {
		return nil, models.NewDetectError(models.ErrCodeInternal, "failed to connect to browser", err)
	}

	s := &Sessions{
		browser: br,
		cfg:     cfg,
		idle:    make(chan *ContextHandle, cfg.PoolSize),
	}
	s.newHandleFn = s.newHandle
	slog.Info("context pool ready", "poolSize", cfg.PoolSize)
	return s, nil
}

// Browser exposes the shared browser for event subscriptions (popups).
func (s *Sessions) Browser() *rod.Browser { return s.browser }

// Active returns the number of currently checked-out contexts.
func (s *Sessions) Active() int { return int(s.active.Load()) }

// PoolSize returns the configured pool capacity.
func (s *Sessions) PoolSize() int { return s.cfg.PoolSize }

// Acquire checks out a context, creating one lazily while the pool is
// under capacity, otherwise blocking until a context is released or the
// context is cancelled. Backpressure lives here and nowhere else.
func (s *Sessions) Acquire(ctx context.Context) (*ContextHandle, error) {
	select {
	case h := <-s.idle:
		s.active.Add(1)
		return h, nil
	default:
	}

	s.mu.Lock()
	if s.total < s.cfg.PoolSize {
		s.total++
		s.mu.Unlock()
		h, err := s.newHandleFn()
		if err != nil {
			s.mu.Lock()
			s.total--
			s.mu.Unlock()
			return nil, err
		}
		s.active.Add(1)
		return h, nil
	}
	s.mu.Unlock()

	select {
	case h := <-s.idle:
		s.active.Add(1)
		return h, nil
	case <-ctx.Done():
		return nil, models.NewDetectError(models.ErrCodeTimeout, "context pool acquisition cancelled", ctx.Err())
	}
}

// Release returns a context to the pool. The page is cleared to
// about:blank first so DOM state never leaks between sites; this uses the
// original page reference so cleanup succeeds even after the per-site
// context expired. Unhealthy contexts are retired and replaced.
func (s *Sessions) Release(h *ContextHandle, success bool) {
	s.active.Add(-1)

	if success {
		h.recordSuccess()
	} else {
		h.recordFailure()
	}

	if s.closing.Load() {
		s.destroyHandle(h)
		return
	}

	if h.shouldRetire() {
		slog.Debug("retiring browser context", "id", h.id, "useCount", h.useCount)
		s.destroyHandle(h)

		replacement, err := s.replaceHandle()
		if err != nil {
			slog.Warn("failed to replace retired context", "error", err)
			return
		}
		s.idle <- replacement
		return
	}

	if navErr := resetPage(h); navErr != nil {
		slog.Warn("cleanup navigation failed, retiring context", "id", h.id, "error", navErr)
		s.destroyHandle(h)
		if replacement, err := s.replaceHandle(); err == nil {
			s.idle <- replacement
		}
		return
	}
	s.idle <- h
}

// Close drains the pool and kills the browser process. Call on shutdown
// to prevent zombie Chrome processes.
func (s *Sessions) Close() {
	s.closing.Store(true)
	slog.Info("sessions shutting down: draining context pool")
	for {
		select {
		case h := <-s.idle:
			s.destroyHandle(h)
		default:
			s.browser.MustClose()
			slog.Info("sessions shutdown complete")
			return
		}
	}
}

// newHandle creates a fresh page with stealth installed. Stealth must be
// injected before any navigation to take effect.
func (s *Sessions) newHandle() (*ContextHandle, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewDetectError(models.ErrCodeInternal, "failed to create browser context", err)
	}
	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
	}
	setHeaders := proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(map[string]string{
		"Accept-Language": "en-US,en;q=0.9",
	})}
	if hdrErr := setHeaders.Call(page); hdrErr != nil {
		slog.Debug("extra headers rejected", "error", hdrErr)
	}
	return &ContextHandle{
		id:      s.nextID.Add(1),
		page:    page,
		created: time.Now(),
	}, nil
}

func (s *Sessions) replaceHandle() (*ContextHandle, error) {
	s.mu.Lock()
	s.total++
	s.mu.Unlock()
	h, err := s.newHandleFn()
	if err != nil {
		s.mu.Lock()
		s.total--
		s.mu.Unlock()
		return nil, err
	}
	return h, nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders
// type (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

func (s *Sessions) destroyHandle(h *ContextHandle) {
	s.mu.Lock()
	s.total--
	s.mu.Unlock()
	if h.page == nil {
		return
	}
	if err := h.page.Close(); err != nil {
		slog.Debug("context close failed", "id", h.id, "error", err)
	}
}

// resetPage clears the page to about:blank before the handle is pooled
// again, so DOM state never leaks between sites.
func resetPage(h *ContextHandle) error {
	if h.page == nil {
		return nil
	}
	return h.page.Navigate("about:blank")
}
