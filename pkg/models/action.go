package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ActionType identifies one primitive browser operation.
type ActionType string

const (
	ActionNavigate       ActionType = "navigate"
	ActionClick          ActionType = "click"
	ActionTypeText       ActionType = "type"
	ActionWait           ActionType = "wait"
	ActionWaitForElement ActionType = "wait_for_element"
	ActionScroll         ActionType = "scroll"
	ActionScreenshot     ActionType = "screenshot"
	ActionGetPageSource  ActionType = "get_page_source"
	ActionExecuteScript  ActionType = "execute_script"
)

// ActionTypes is the fixed vocabulary of supported action kinds.
var ActionTypes = []ActionType{
	ActionNavigate,
	ActionClick,
	ActionTypeText,
	ActionWait,
	ActionWaitForElement,
	ActionScroll,
	ActionScreenshot,
	ActionGetPageSource,
	ActionExecuteScript,
}

// ScrollDirection is the direction parameter of a scroll action.
type ScrollDirection string

const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

// DefaultScrollPixels is used when a scroll action omits the pixel count.
const DefaultScrollPixels = 100

// DefaultElementTimeout applies to wait_for_element actions without an
// explicit timeout.
const DefaultElementTimeout = 30 * time.Second

// Action is a closed tagged variant over the supported browser primitives.
// Wire form is {"type": <kind>, "params": {...}} where each kind carries only
// the parameters it needs; unknown kinds and unknown parameters are rejected
// when decoding, not at execution time.
type Action struct {
	Type       ActionType
	URL        string
	Selector   string
	Text       string
	Script     string
	DurationMS int64
	TimeoutMS  int64
	Direction  ScrollDirection
	Pixels     int
}

type actionEnvelope struct {
	Type   ActionType      `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

type navigateParams struct {
	URL string `json:"url"`
}

type clickParams struct {
	Selector string `json:"selector"`
}

type typeParams struct {
	Selector string `json:"selector"`
	Text     string `json:"text"`
}

type waitParams struct {
	DurationMS int64 `json:"duration_ms"`
}

type waitForElementParams struct {
	Selector  string `json:"selector"`
	TimeoutMS *int64 `json:"timeout_ms,omitempty"`
}

type scrollParams struct {
	Direction ScrollDirection `json:"direction"`
	Pixels    *int            `json:"pixels,omitempty"`
}

type scriptParams struct {
	Script string `json:"script"`
}

func decodeStrict(raw json.RawMessage, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// UnmarshalJSON decodes the tagged wire form, rejecting unknown action kinds
// and unknown or extra parameters.
func (a *Action) UnmarshalJSON(data []byte) error {
	var env actionEnvelope
	if err := decodeStrict(data, &env); err != nil {
		return err
	}

	params := env.Params
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}

	*a = Action{Type: env.Type}

	switch env.Type {
	case ActionNavigate:
		var p navigateParams
		if err := decodeStrict(params, &p); err != nil {
			return fmt.Errorf("navigate params: %w", err)
		}
		a.URL = p.URL
	case ActionClick:
		var p clickParams
		if err := decodeStrict(params, &p); err != nil {
			return fmt.Errorf("click params: %w", err)
		}
		a.Selector = p.Selector
	case ActionTypeText:
		var p typeParams
		if err := decodeStrict(params, &p); err != nil {
			return fmt.Errorf("type params: %w", err)
		}
		a.Selector = p.Selector
		a.Text = p.Text
	case ActionWait:
		var p waitParams
		if err := decodeStrict(params, &p); err != nil {
			return fmt.Errorf("wait params: %w", err)
		}
		a.DurationMS = p.DurationMS
	case ActionWaitForElement:
		var p waitForElementParams
		if err := decodeStrict(params, &p); err != nil {
			return fmt.Errorf("wait_for_element params: %w", err)
		}
		a.Selector = p.Selector
		if p.TimeoutMS != nil {
			a.TimeoutMS = *p.TimeoutMS
		} else {
			a.TimeoutMS = DefaultElementTimeout.Milliseconds()
		}
	case ActionScroll:
		var p scrollParams
		if err := decodeStrict(params, &p); err != nil {
			return fmt.Errorf("scroll params: %w", err)
		}
		a.Direction = p.Direction
		if p.Pixels != nil {
			a.Pixels = *p.Pixels
		} else {
			a.Pixels = DefaultScrollPixels
		}
	case ActionScreenshot, ActionGetPageSource:
		var p struct{}
		if err := decodeStrict(params, &p); err != nil {
			return fmt.Errorf("%s params: %w", env.Type, err)
		}
	case ActionExecuteScript:
		var p scriptParams
		if err := decodeStrict(params, &p); err != nil {
			return fmt.Errorf("execute_script params: %w", err)
		}
		a.Script = p.Script
	default:
		return fmt.Errorf("unsupported action type %q", env.Type)
	}

	return nil
}

// MarshalJSON emits the tagged wire form.
func (a Action) MarshalJSON() ([]byte, error) {
	env := actionEnvelope{Type: a.Type}

	var params interface{}
	switch a.Type {
	case ActionNavigate:
		params = navigateParams{URL: a.URL}
	case ActionClick:
		params = clickParams{Selector: a.Selector}
	case ActionTypeText:
		params = typeParams{Selector: a.Selector, Text: a.Text}
	case ActionWait:
		params = waitParams{DurationMS: a.DurationMS}
	case ActionWaitForElement:
		t := a.TimeoutMS
		params = waitForElementParams{Selector: a.Selector, TimeoutMS: &t}
	case ActionScroll:
		px := a.Pixels
		params = scrollParams{Direction: a.Direction, Pixels: &px}
	case ActionScreenshot, ActionGetPageSource:
		// No parameters.
	case ActionExecuteScript:
		params = scriptParams{Script: a.Script}
	default:
		return nil, fmt.Errorf("unsupported action type %q", a.Type)
	}

	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		env.Params = raw
	}

	return json.Marshal(env)
}

// Validate checks the semantic safety of an already-decoded action: selectors,
// URLs and scripts must be non-empty, durations non-negative and bounded by
// maxWait.
func (a Action) Validate(maxWait time.Duration) error {
	switch a.Type {
	case ActionNavigate:
		if a.URL == "" {
			return fmt.Errorf("navigate: url must not be empty")
		}
	case ActionClick:
		if a.Selector == "" {
			return fmt.Errorf("click: selector must not be empty")
		}
	case ActionTypeText:
		if a.Selector == "" {
			return fmt.Errorf("type: selector must not be empty")
		}
	case ActionWait:
		if a.DurationMS < 0 {
			return fmt.Errorf("wait: duration must not be negative")
		}
		if time.Duration(a.DurationMS)*time.Millisecond > maxWait {
			return fmt.Errorf("wait: duration %dms exceeds maximum %s", a.DurationMS, maxWait)
		}
	case ActionWaitForElement:
		if a.Selector == "" {
			return fmt.Errorf("wait_for_element: selector must not be empty")
		}
		if a.TimeoutMS < 0 {
			return fmt.Errorf("wait_for_element: timeout must not be negative")
		}
		if time.Duration(a.TimeoutMS)*time.Millisecond > maxWait {
			return fmt.Errorf("wait_for_element: timeout %dms exceeds maximum %s", a.TimeoutMS, maxWait)
		}
	case ActionScroll:
		switch a.Direction {
		case ScrollUp, ScrollDown, ScrollLeft, ScrollRight:
		default:
			return fmt.Errorf("scroll: unknown direction %q", a.Direction)
		}
	case ActionScreenshot, ActionGetPageSource:
	case ActionExecuteScript:
		if a.Script == "" {
			return fmt.Errorf("execute_script: script must not be empty")
		}
	default:
		return fmt.Errorf("unsupported action type %q", a.Type)
	}
	return nil
}

// WaitDuration returns the wait duration of a wait action.
func (a Action) WaitDuration() time.Duration {
	return time.Duration(a.DurationMS) * time.Millisecond
}

// ElementTimeout returns the timeout of a wait_for_element action, applying
// the default when unset.
func (a Action) ElementTimeout() time.Duration {
	if a.TimeoutMS <= 0 {
		return DefaultElementTimeout
	}
	return time.Duration(a.TimeoutMS) * time.Millisecond
}

// ScrollOffsets converts direction and pixel count into x/y deltas.
func (a Action) ScrollOffsets() (dx, dy int) {
	px := a.Pixels
	if px == 0 {
		px = DefaultScrollPixels
	}
	switch a.Direction {
	case ScrollUp:
		return 0, -px
	case ScrollDown:
		return 0, px
	case ScrollLeft:
		return -px, 0
	case ScrollRight:
		return px, 0
	}
	return 0, 0
}

func (a Action) String() string {
	switch a.Type {
	case ActionNavigate:
		return fmt.Sprintf("navigate %s", a.URL)
	case ActionClick:
		return fmt.Sprintf("click %s", a.Selector)
	case ActionTypeText:
		return fmt.Sprintf("type into %s", a.Selector)
	case ActionWait:
		return fmt.Sprintf("wait %dms", a.DurationMS)
	case ActionWaitForElement:
		return fmt.Sprintf("wait for %s", a.Selector)
	case ActionScroll:
		return fmt.Sprintf("scroll %s %dpx", a.Direction, a.Pixels)
	default:
		return string(a.Type)
	}
}
