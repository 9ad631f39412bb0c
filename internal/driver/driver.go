// Package driver binds the service to a concrete browser-control backend.
// The core only sees the Driver and Tab interfaces; implementations classify
// their own failures into the apperr taxonomy.
package driver

import (
	"context"
	"time"
)

// Tab is an exclusive handle to one browser tab. Callers serialize access;
// a Tab is never shared across sessions.
type Tab interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	WaitForElement(ctx context.Context, selector string, timeout time.Duration) error
	Scroll(ctx context.Context, dx, dy int) error
	Screenshot(ctx context.Context) ([]byte, error)
	PageSource(ctx context.Context) (string, error)
	Evaluate(ctx context.Context, script string) (string, error)

	// URL returns the tab's current location without a driver round trip.
	URL() string

	// Close releases the tab and any backing resources. Idempotent.
	Close() error
}

// Driver opens isolated tabs against a browser backend.
type Driver interface {
	OpenTab(ctx context.Context) (Tab, error)
	Close() error
}
