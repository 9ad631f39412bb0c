// Package executor applies single actions to sessions, enforcing per-action
// timeouts and normalizing driver failures into the error taxonomy.
package executor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/pagepilot/pagepilot/internal/apperr"
	"github.com/pagepilot/pagepilot/internal/driver"
	"github.com/pagepilot/pagepilot/internal/session"
	"github.com/pagepilot/pagepilot/pkg/models"
)

// Config sets the timeout ceilings per action class.
type Config struct {
	// ShortTimeout bounds click, type and scroll.
	ShortTimeout time.Duration
	// LongTimeout bounds navigate, screenshot, page source and scripts.
	LongTimeout time.Duration
	// MaxWait caps caller-specified wait and wait_for_element durations.
	MaxWait time.Duration
}

// DefaultConfig mirrors the service defaults.
func DefaultConfig() Config {
	return Config{
		ShortTimeout: 10 * time.Second,
		LongTimeout:  30 * time.Second,
		MaxWait:      60 * time.Second,
	}
}

// Executor runs one action at a time per session.
type Executor struct {
	cfg Config
}

// New creates an executor, filling zero config fields with defaults.
func New(cfg Config) *Executor {
	def := DefaultConfig()
	if cfg.ShortTimeout <= 0 {
		cfg.ShortTimeout = def.ShortTimeout
	}
	if cfg.LongTimeout <= 0 {
		cfg.LongTimeout = def.LongTimeout
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = def.MaxWait
	}
	return &Executor{cfg: cfg}
}

// MaxWait exposes the configured wait ceiling for plan validation.
func (e *Executor) MaxWait() time.Duration { return e.cfg.MaxWait }

type outcome struct {
	output string
	data   []byte
	err    error
}

// Execute applies one action to the session's tab. It blocks while another
// action on the same session is in flight; actions on other sessions are
// unaffected. On timeout the call returns immediately with a Timeout error
// and the pending driver call is abandoned: the session's action lock is
// released by the abandoned call once the driver unwinds, never left held
// indefinitely (cancellation reaches the driver through the deadline it was
// handed).
func (e *Executor) Execute(ctx context.Context, sess *session.Session, action models.Action) (models.ActionResult, error) {
	if err := action.Validate(e.cfg.MaxWait); err != nil {
		return models.ActionResult{}, apperr.Wrap(apperr.CodeValidation, err, "invalid action")
	}

	start := time.Now()

	sess.LockActions()

	ctx, cancel := context.WithTimeout(ctx, e.timeoutFor(action))

	done := make(chan outcome, 1)
	go func() {
		defer sess.UnlockActions()
		out, data, err := e.dispatch(ctx, sess.Tab(), action)
		done <- outcome{output: out, data: data, err: err}
	}()

	select {
	case o := <-done:
		cancel()
		elapsed := time.Since(start).Milliseconds()
		if o.err != nil {
			return models.ActionResult{ElapsedMS: elapsed}, e.classify(o.err)
		}
		sess.Touch()
		return models.ActionResult{
			Success:   true,
			Output:    o.output,
			Data:      o.data,
			ElapsedMS: elapsed,
		}, nil
	case <-ctx.Done():
		cancel()
		elapsed := time.Since(start).Milliseconds()
		if errors.Is(ctx.Err(), context.Canceled) {
			return models.ActionResult{ElapsedMS: elapsed},
				apperr.Wrap(apperr.CodeCanceled, ctx.Err(), "%s canceled by caller", action.Type)
		}
		return models.ActionResult{ElapsedMS: elapsed},
			apperr.New(apperr.CodeTimeout, "%s timed out after %s", action.Type, e.timeoutFor(action))
	}
}

// timeoutFor picks the ceiling for an action kind: short for interactions,
// caller-specified (capped) for waits, generous for the heavyweight calls.
func (e *Executor) timeoutFor(action models.Action) time.Duration {
	switch action.Type {
	case models.ActionClick, models.ActionTypeText, models.ActionScroll:
		return e.cfg.ShortTimeout
	case models.ActionWait:
		return e.capWait(action.WaitDuration() + time.Second)
	case models.ActionWaitForElement:
		return e.capWait(action.ElementTimeout() + time.Second)
	default:
		return e.cfg.LongTimeout
	}
}

func (e *Executor) capWait(d time.Duration) time.Duration {
	ceiling := e.cfg.MaxWait + time.Second
	if d > ceiling {
		return ceiling
	}
	return d
}

// dispatch is the exhaustive match over the closed action vocabulary.
func (e *Executor) dispatch(ctx context.Context, tab driver.Tab, action models.Action) (string, []byte, error) {
	switch action.Type {
	case models.ActionNavigate:
		if err := tab.Navigate(ctx, action.URL); err != nil {
			return "", nil, err
		}
		return tab.URL(), nil, nil
	case models.ActionClick:
		if err := tab.Click(ctx, action.Selector); err != nil {
			return "", nil, err
		}
		return "click successful", nil, nil
	case models.ActionTypeText:
		if err := tab.Type(ctx, action.Selector, action.Text); err != nil {
			return "", nil, err
		}
		return "text input successful", nil, nil
	case models.ActionWait:
		select {
		case <-time.After(action.WaitDuration()):
			return "wait completed", nil, nil
		case <-ctx.Done():
			return "", nil, ctx.Err()
		}
	case models.ActionWaitForElement:
		if err := tab.WaitForElement(ctx, action.Selector, action.ElementTimeout()); err != nil {
			return "", nil, err
		}
		return "element found", nil, nil
	case models.ActionScroll:
		dx, dy := action.ScrollOffsets()
		if err := tab.Scroll(ctx, dx, dy); err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("scrolled by (%d, %d)", dx, dy), nil, nil
	case models.ActionScreenshot:
		shot, err := tab.Screenshot(ctx)
		if err != nil {
			return "", nil, err
		}
		encoded := base64.StdEncoding.EncodeToString(shot)
		return "data:image/png;base64," + encoded, shot, nil
	case models.ActionGetPageSource:
		source, err := tab.PageSource(ctx)
		if err != nil {
			return "", nil, err
		}
		return source, nil, nil
	case models.ActionExecuteScript:
		result, err := tab.Evaluate(ctx, action.Script)
		if err != nil {
			return "", nil, err
		}
		return result, nil, nil
	default:
		return "", nil, apperr.New(apperr.CodeValidation, "unsupported action type %q", action.Type)
	}
}

// classify normalizes driver failures: deadline errors become Timeout, a
// caller abort becomes Canceled, coded errors pass through, everything else is
// a DriverError.
func (e *Executor) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.CodeTimeout, err, "action deadline exceeded")
	}
	if errors.Is(err, context.Canceled) {
		return apperr.Wrap(apperr.CodeCanceled, err, "action canceled")
	}
	switch apperr.CodeOf(err) {
	case apperr.CodeElementNotFound, apperr.CodeNavigationFailed, apperr.CodeScriptError,
		apperr.CodeTimeout, apperr.CodeCanceled, apperr.CodeDriverError, apperr.CodeDriverUnavailable:
		return err
	default:
		return apperr.Wrap(apperr.CodeDriverError, err, "driver failure")
	}
}
