// Package drivertest provides an in-memory Driver for tests: it records
// calls, counts tab releases, detects reentrant use of a tab, and lets tests
// inject failures and latency per primitive.
package drivertest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pagepilot/pagepilot/internal/driver"
)

// PNGStub is the byte payload fake screenshots return.
var PNGStub = []byte{0x89, 'P', 'N', 'G', '\r', '\n'}

// Fake implements driver.Driver.
type Fake struct {
	mu sync.Mutex

	// OpenErr fails the next OpenTab calls when set.
	OpenErr error
	// TabDefaults is copied into every opened tab.
	TabDefaults Tab

	tabs []*Tab
}

// OpenTab returns a fresh fake tab, or OpenErr when set.
func (f *Fake) OpenTab(ctx context.Context) (driver.Tab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.OpenErr != nil {
		return nil, f.OpenErr
	}

	// Copy the exported defaults field by field: copying the whole struct
	// would copy its mutex (vet copylocks).
	tab := Tab{
		Source:      f.TabDefaults.Source,
		Delay:       f.TabDefaults.Delay,
		NavigateErr: f.TabDefaults.NavigateErr,
		ClickErr:    f.TabDefaults.ClickErr,
		TypeErr:     f.TabDefaults.TypeErr,
		WaitErr:     f.TabDefaults.WaitErr,
		ScrollErr:   f.TabDefaults.ScrollErr,
		ShotErr:     f.TabDefaults.ShotErr,
		SourceErr:   f.TabDefaults.SourceErr,
		EvalErr:     f.TabDefaults.EvalErr,
		CloseErr:    f.TabDefaults.CloseErr,
		EvalResult:  f.TabDefaults.EvalResult,
	}
	if tab.Source == "" {
		tab.Source = "<html><body>fake</body></html>"
	}
	t := &tab
	f.tabs = append(f.tabs, t)
	return t, nil
}

// Close implements driver.Driver.
func (f *Fake) Close() error { return nil }

// Tabs returns all tabs opened so far.
func (f *Fake) Tabs() []*Tab {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Tab(nil), f.tabs...)
}

// LastTab returns the most recently opened tab, or nil.
func (f *Fake) LastTab() *Tab {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tabs) == 0 {
		return nil
	}
	return f.tabs[len(f.tabs)-1]
}

// Tab implements driver.Tab. The zero value succeeds on every call.
type Tab struct {
	// Source is what PageSource returns.
	Source string
	// Delay makes every primitive sleep, for serialization/timeout tests.
	Delay time.Duration

	// Per-primitive failure hooks.
	NavigateErr error
	ClickErr    error
	TypeErr     error
	WaitErr     error
	ScrollErr   error
	ShotErr     error
	SourceErr   error
	EvalErr     error
	CloseErr    error

	// EvalResult is what Evaluate returns on success.
	EvalResult string

	mu        sync.Mutex
	calls     []string
	url       string
	inFlight  int32
	reentered int32
	closes    int32
}

// begin/end bracket every primitive so tests can assert the per-session
// serialization invariant: a second concurrent call flags the tab.
func (t *Tab) begin(ctx context.Context, call string) error {
	if atomic.AddInt32(&t.inFlight, 1) > 1 {
		atomic.StoreInt32(&t.reentered, 1)
	}

	t.mu.Lock()
	t.calls = append(t.calls, call)
	t.mu.Unlock()

	if t.Delay > 0 {
		select {
		case <-time.After(t.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (t *Tab) end() { atomic.AddInt32(&t.inFlight, -1) }

func (t *Tab) Navigate(ctx context.Context, url string) error {
	if err := t.begin(ctx, "navigate "+url); err != nil {
		t.end()
		return err
	}
	defer t.end()
	if t.NavigateErr != nil {
		return t.NavigateErr
	}
	t.mu.Lock()
	t.url = url
	t.mu.Unlock()
	return nil
}

func (t *Tab) Click(ctx context.Context, selector string) error {
	if err := t.begin(ctx, "click "+selector); err != nil {
		t.end()
		return err
	}
	defer t.end()
	return t.ClickErr
}

func (t *Tab) Type(ctx context.Context, selector, text string) error {
	if err := t.begin(ctx, "type "+selector); err != nil {
		t.end()
		return err
	}
	defer t.end()
	return t.TypeErr
}

func (t *Tab) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	if err := t.begin(ctx, "wait_for_element "+selector); err != nil {
		t.end()
		return err
	}
	defer t.end()
	return t.WaitErr
}

func (t *Tab) Scroll(ctx context.Context, dx, dy int) error {
	if err := t.begin(ctx, "scroll"); err != nil {
		t.end()
		return err
	}
	defer t.end()
	return t.ScrollErr
}

func (t *Tab) Screenshot(ctx context.Context) ([]byte, error) {
	if err := t.begin(ctx, "screenshot"); err != nil {
		t.end()
		return nil, err
	}
	defer t.end()
	if t.ShotErr != nil {
		return nil, t.ShotErr
	}
	return PNGStub, nil
}

func (t *Tab) PageSource(ctx context.Context) (string, error) {
	if err := t.begin(ctx, "get_page_source"); err != nil {
		t.end()
		return "", err
	}
	defer t.end()
	if t.SourceErr != nil {
		return "", t.SourceErr
	}
	return t.Source, nil
}

func (t *Tab) Evaluate(ctx context.Context, script string) (string, error) {
	if err := t.begin(ctx, "execute_script"); err != nil {
		t.end()
		return "", err
	}
	defer t.end()
	if t.EvalErr != nil {
		return "", t.EvalErr
	}
	return t.EvalResult, nil
}

func (t *Tab) URL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url
}

func (t *Tab) Close() error {
	atomic.AddInt32(&t.closes, 1)
	return t.CloseErr
}

// Closes returns how many times Close was called.
func (t *Tab) Closes() int { return int(atomic.LoadInt32(&t.closes)) }

// Reentered reports whether two primitives ever overlapped on this tab.
func (t *Tab) Reentered() bool { return atomic.LoadInt32(&t.reentered) == 1 }

// Calls returns the recorded primitive invocations in order.
func (t *Tab) Calls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}
