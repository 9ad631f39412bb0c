package planner

import (
	"errors"
	"fmt"
)

var (
	errNoBackend = errors.New("no planner backend configured")
	errEmptyPlan = errors.New("backend returned an empty plan")
)

// stepError pinpoints the step that failed semantic validation.
type stepError struct {
	index int
	err   error
}

func (e *stepError) Error() string {
	return fmt.Sprintf("plan step %d: %v", e.index, e.err)
}

func (e *stepError) Unwrap() error { return e.err }
