package browser

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"

	"github.com/roomsage/bookscan/models"
)

// Navigate loads targetURL with a hard page-load deadline, waiting for the
// DOM to stabilize. On deadline it makes one lenient retry that waits for
// the first byte only, then gives up with a timeout error.
func Navigate(ctx context.Context, page *rod.Page, targetURL string, loadTimeout time.Duration) error {
	loadCtx, cancel := context.WithTimeout(ctx, loadTimeout)
	err := navigateOnce(loadCtx, page, targetURL, true)
	cancel()
	if err == nil {
		return nil
	}

	var derr *models.DetectError
	if errors.As(err, &derr) && derr.Code == models.ErrCodeNavigation {
		return err
	}

	// Lenient retry: first byte only, no settle wait.
	slog.Debug("page load timed out, lenient retry", "url", targetURL)
	retryCtx, cancel := context.WithTimeout(ctx, loadTimeout/2)
	defer cancel()
	if err := navigateOnce(retryCtx, page, targetURL, false); err != nil {
		if errors.As(err, &derr) && derr.Code == models.ErrCodeNavigation {
			return err
		}
		return models.NewDetectError(models.ErrCodeTimeout, "page load timed out", err)
	}
	return nil
}

// navigateOnce performs a single navigation. waitStable controls whether
// we wait for the DOM to settle after the response arrives.
func navigateOnce(ctx context.Context, page *rod.Page, targetURL string, waitStable bool) error {
	p := page.Context(ctx)

	if err := p.Navigate(targetURL); err != nil {
		return categorizeNavError(ctx, err)
	}

	if waitStable {
		if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
			if ctx.Err() != nil {
				return categorizeNavError(ctx, stableErr)
			}
			// Never fully converged; the current DOM is still usable.
			slog.Debug("DOM did not stabilize, proceeding", "url", targetURL, "error", stableErr)
		}
	}
	return nil
}

func categorizeNavError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return models.NewDetectError(models.ErrCodeTimeout, "navigation deadline exceeded", err)
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return models.NewDetectError(models.ErrCodeTimeout, "navigation cancelled", err)
	default:
		return models.NewDetectError(models.ErrCodeNavigation, "navigation failed", err)
	}
}

// RenderedHTML extracts the current DOM as HTML.
func RenderedHTML(ctx context.Context, page *rod.Page) (string, error) {
	html, err := page.Context(ctx).HTML()
	if err != nil {
		return "", models.NewDetectError(models.ErrCodeInternal, "failed to extract rendered HTML", err)
	}
	return html, nil
}

// CurrentURL reads the page's current location, falling back to empty on
// error (best-effort metadata, same as title extraction).
func CurrentURL(ctx context.Context, page *rod.Page) string {
	res, err := page.Context(ctx).Eval(`() => window.location.href`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}
