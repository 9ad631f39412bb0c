package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/pagepilot/pagepilot/internal/apperr"
	"github.com/pagepilot/pagepilot/internal/browser"
)

// PoolDriver provisions a dedicated Chromium container per tab through the
// Docker pool and attaches to it over CDP. Heavier than PlaywrightDriver's
// shared browser, but gives each session its own browser process.
type PoolDriver struct {
	pw   *playwright.Playwright
	pool *browser.Pool
}

// NewPool wires a Docker-backed pool to a Playwright runner used only for
// CDP connections.
func NewPool(pool *browser.Pool) (*PoolDriver, error) {
	opts := runOptions()

	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	return &PoolDriver{pw: pw, pool: pool}, nil
}

// OpenTab launches a container and connects to it over CDP.
func (d *PoolDriver) OpenTab(ctx context.Context) (Tab, error) {
	instance, err := d.pool.Launch(ctx, uuid.New().String())
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDriverUnavailable, err, "failed to launch browser container")
	}

	conn, err := d.pw.Chromium.ConnectOverCDP(instance.ConnectURL)
	if err != nil {
		d.stopContainer(instance.ContainerID)
		return nil, apperr.Wrap(apperr.CodeDriverUnavailable, err, "failed to connect to browser at %s", instance.ConnectURL)
	}

	bctx, page, err := newIsolatedPage(conn)
	if err != nil {
		conn.Close()
		d.stopContainer(instance.ContainerID)
		return nil, apperr.Wrap(apperr.CodeDriverUnavailable, err, "failed to open tab")
	}

	containerID := instance.ContainerID
	return &playwrightTab{
		bctx: bctx,
		page: page,
		cleanup: func() error {
			conn.Close()
			return d.stopContainer(containerID)
		},
	}, nil
}

// Close stops the Playwright runner and releases the Docker client. Running
// containers are stopped by their tabs' cleanup hooks.
func (d *PoolDriver) Close() error {
	err := d.pw.Stop()
	if cerr := d.pool.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (d *PoolDriver) stopContainer(containerID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return d.pool.Stop(ctx, containerID)
}
