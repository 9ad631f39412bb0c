// Package planner turns free-text task descriptions into validated action
// plans. The LLM backend is treated as an unreliable dependency: every call
// carries a ceiling timeout and any failure (transport, malformed output,
// out-of-vocabulary action, unsafe parameter) downgrades to a deterministic
// fallback plan instead of an error. Degraded mode is a first-class result,
// not an error path.
package planner

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/pagepilot/pagepilot/pkg/models"
)

// Request carries the planning inputs. Context values are opaque strings
// forwarded to the backend prompt; they are never substituted into action
// parameters by this package.
type Request struct {
	Task      string
	TargetURL string
	Context   map[string]string
}

// Backend produces a candidate ordered action list for a request. May be
// unreachable or slow; callers bound it with a context deadline.
type Backend interface {
	GeneratePlan(ctx context.Context, req Request) ([]models.Action, error)
}

// Config bounds the planner.
type Config struct {
	// Timeout is the ceiling for one backend call.
	Timeout time.Duration
	// MaxWait caps duration parameters in accepted plans, matching the
	// executor's ceiling.
	MaxWait time.Duration
}

// DefaultConfig mirrors the service defaults.
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
		MaxWait: 60 * time.Second,
	}
}

// Planner validates backend plans and synthesizes fallbacks. A nil backend is
// a permanently unavailable planner: every request yields a fallback plan.
type Planner struct {
	backend Backend
	cfg     Config
}

// New creates a planner, filling zero config fields with defaults.
func New(backend Backend, cfg Config) *Planner {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = def.MaxWait
	}
	return &Planner{backend: backend, cfg: cfg}
}

// Plan produces a non-empty, schema-valid plan for the request. It never
// fails: when the backend is unavailable or returns an unusable result the
// deterministic fallback is substituted and the plan is tagged accordingly.
func (p *Planner) Plan(ctx context.Context, req Request) models.Plan {
	steps, err := p.planned(ctx, req)
	if err != nil {
		log.Printf("planner unavailable, using fallback: %v", err)
		return Fallback(req)
	}

	return models.Plan{
		Description: "planned: " + req.Task,
		Source:      models.PlanSourcePlanned,
		Steps:       steps,
	}
}

func (p *Planner) planned(ctx context.Context, req Request) ([]models.Action, error) {
	if p.backend == nil {
		return nil, errNoBackend
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	steps, err := p.backend.GeneratePlan(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := p.validate(steps); err != nil {
		return nil, err
	}
	return steps, nil
}

// validate enforces semantic safety on a structurally valid plan: non-empty,
// and every parameter within the configured bounds. The structural checks
// (vocabulary, required parameters) already happened when the backend
// response was decoded into Action values.
func (p *Planner) validate(steps []models.Action) error {
	if len(steps) == 0 {
		return errEmptyPlan
	}
	for i, step := range steps {
		if err := step.Validate(p.cfg.MaxWait); err != nil {
			return &stepError{index: i, err: err}
		}
	}
	return nil
}

// Fallback synthesizes the deterministic planner-independent plan: with a
// target URL, navigate + settle + read; without one, the best-effort match on
// the task text; at minimum, read the current page. The same request always
// yields the same plan.
func Fallback(req Request) models.Plan {
	var steps []models.Action

	if req.TargetURL != "" {
		steps = append(steps,
			models.Action{Type: models.ActionNavigate, URL: req.TargetURL},
			models.Action{Type: models.ActionWait, DurationMS: 2000},
		)
	}

	task := strings.ToLower(req.Task)
	switch {
	case strings.Contains(task, "screenshot") || strings.Contains(task, "capture"):
		steps = append(steps, models.Action{Type: models.ActionScreenshot})
	case strings.Contains(task, "scroll"):
		steps = append(steps,
			models.Action{Type: models.ActionScroll, Direction: models.ScrollDown, Pixels: 600},
			models.Action{Type: models.ActionGetPageSource},
		)
	default:
		steps = append(steps, models.Action{Type: models.ActionGetPageSource})
	}

	return models.Plan{
		Description: "fallback: " + req.Task,
		Source:      models.PlanSourceFallback,
		Steps:       steps,
	}
}
