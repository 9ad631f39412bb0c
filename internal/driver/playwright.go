package driver

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/pagepilot/pagepilot/internal/apperr"
)

const (
	defaultViewportWidth  = 1280
	defaultViewportHeight = 720
)

// PlaywrightDriver drives a locally launched headless Chromium through
// Playwright. Every tab gets its own browser context, so cookies and storage
// never leak between sessions.
type PlaywrightDriver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
}

func runOptions() *playwright.RunOptions {
	return &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
}

// NewPlaywright installs (if needed) and launches a local headless Chromium.
func NewPlaywright() (*PlaywrightDriver, error) {
	opts := runOptions()

	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &PlaywrightDriver{pw: pw, browser: browser}, nil
}

// OpenTab creates an isolated context and page in the shared browser.
func (d *PlaywrightDriver) OpenTab(ctx context.Context) (Tab, error) {
	bctx, page, err := newIsolatedPage(d.browser)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDriverUnavailable, err, "failed to open tab")
	}
	return &playwrightTab{bctx: bctx, page: page}, nil
}

// Close shuts the browser and the Playwright runner down.
func (d *PlaywrightDriver) Close() error {
	if err := d.browser.Close(); err != nil {
		d.pw.Stop()
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return d.pw.Stop()
}

func newIsolatedPage(browser playwright.Browser) (playwright.BrowserContext, playwright.Page, error) {
	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  defaultViewportWidth,
			Height: defaultViewportHeight,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return nil, nil, fmt.Errorf("failed to create page: %w", err)
	}

	return bctx, page, nil
}

// playwrightTab adapts one Playwright page to the Tab interface. The optional
// cleanup hook runs after the page's context closes (used by the pool-backed
// driver to stop the session's container).
type playwrightTab struct {
	bctx    playwright.BrowserContext
	page    playwright.Page
	cleanup func() error
}

// timeoutMS converts the remaining context deadline into Playwright's
// millisecond timeout, falling back when no deadline is set. Playwright calls
// do not take a context; the deadline-derived timeout is how cancellation is
// signaled to the protocol layer.
func timeoutMS(ctx context.Context, fallback time.Duration) float64 {
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 1
		}
		return float64(remaining.Milliseconds())
	}
	return float64(fallback.Milliseconds())
}

func isTimeoutMessage(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "timeout")
}

func (t *playwrightTab) Navigate(ctx context.Context, url string) error {
	_, err := t.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(timeoutMS(ctx, 30*time.Second)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return apperr.Wrap(apperr.CodeNavigationFailed, err, "failed to navigate to %s", url)
	}
	return nil
}

func (t *playwrightTab) Click(ctx context.Context, selector string) error {
	err := t.page.Click(selector, playwright.PageClickOptions{
		Timeout: playwright.Float(timeoutMS(ctx, 10*time.Second)),
	})
	if err != nil {
		return apperr.Wrap(apperr.CodeElementNotFound, err, "failed to click %s", selector)
	}
	return nil
}

func (t *playwrightTab) Type(ctx context.Context, selector, text string) error {
	err := t.page.Fill(selector, text, playwright.PageFillOptions{
		Timeout: playwright.Float(timeoutMS(ctx, 10*time.Second)),
	})
	if err != nil {
		return apperr.Wrap(apperr.CodeElementNotFound, err, "failed to type into %s", selector)
	}
	return nil
}

func (t *playwrightTab) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	_, err := t.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		if isTimeoutMessage(err) {
			return apperr.Wrap(apperr.CodeElementNotFound, err, "element %s not found within %s", selector, timeout)
		}
		return apperr.Wrap(apperr.CodeDriverError, err, "wait for %s failed", selector)
	}
	return nil
}

func (t *playwrightTab) Scroll(ctx context.Context, dx, dy int) error {
	script := fmt.Sprintf("window.scrollBy(%d, %d)", dx, dy)
	if _, err := t.page.Evaluate(script); err != nil {
		return apperr.Wrap(apperr.CodeDriverError, err, "failed to scroll by (%d, %d)", dx, dy)
	}
	return nil
}

func (t *playwrightTab) Screenshot(ctx context.Context) ([]byte, error) {
	shot, err := t.page.Screenshot(playwright.PageScreenshotOptions{
		Timeout: playwright.Float(timeoutMS(ctx, 30*time.Second)),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDriverError, err, "failed to take screenshot")
	}
	return shot, nil
}

func (t *playwrightTab) PageSource(ctx context.Context) (string, error) {
	source, err := t.page.Content()
	if err != nil {
		return "", apperr.Wrap(apperr.CodeDriverError, err, "failed to get page source")
	}
	return source, nil
}

func (t *playwrightTab) Evaluate(ctx context.Context, script string) (string, error) {
	result, err := t.page.Evaluate(script)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeScriptError, err, "failed to execute script")
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprintf("%v", result), nil
}

func (t *playwrightTab) URL() string {
	return t.page.URL()
}

func (t *playwrightTab) Close() error {
	// Ignore page/context close errors, continue cleanup.
	_ = t.page.Close()
	err := t.bctx.Close()
	if t.cleanup != nil {
		if cerr := t.cleanup(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
