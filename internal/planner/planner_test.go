package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepilot/pagepilot/pkg/models"
)

// backendFunc adapts a function to the Backend interface.
type backendFunc func(ctx context.Context, req Request) ([]models.Action, error)

func (f backendFunc) GeneratePlan(ctx context.Context, req Request) ([]models.Action, error) {
	return f(ctx, req)
}

func TestPlanUsesBackend(t *testing.T) {
	backend := backendFunc(func(ctx context.Context, req Request) ([]models.Action, error) {
		return []models.Action{
			{Type: models.ActionNavigate, URL: req.TargetURL},
			{Type: models.ActionScreenshot},
		}, nil
	})
	p := New(backend, DefaultConfig())

	plan := p.Plan(context.Background(), Request{Task: "capture the page", TargetURL: "https://example.com"})

	assert.Equal(t, models.PlanSourcePlanned, plan.Source)
	require.Len(t, plan.Steps, 2)
	assert.Equal(t, models.ActionNavigate, plan.Steps[0].Type)
}

func TestPlanNilBackendFallsBack(t *testing.T) {
	p := New(nil, DefaultConfig())

	plan := p.Plan(context.Background(), Request{Task: "read the page"})

	assert.Equal(t, models.PlanSourceFallback, plan.Source)
	assert.NotEmpty(t, plan.Steps)
}

func TestPlanBackendErrorFallsBack(t *testing.T) {
	backend := backendFunc(func(ctx context.Context, req Request) ([]models.Action, error) {
		return nil, errors.New("connection refused")
	})
	p := New(backend, DefaultConfig())

	plan := p.Plan(context.Background(), Request{Task: "anything"})

	assert.Equal(t, models.PlanSourceFallback, plan.Source)
	assert.NotEmpty(t, plan.Steps)
}

func TestPlanEmptyBackendPlanFallsBack(t *testing.T) {
	backend := backendFunc(func(ctx context.Context, req Request) ([]models.Action, error) {
		return []models.Action{}, nil
	})
	p := New(backend, DefaultConfig())

	plan := p.Plan(context.Background(), Request{Task: "anything"})

	assert.Equal(t, models.PlanSourceFallback, plan.Source)
}

func TestPlanSemanticViolationFallsBack(t *testing.T) {
	// Structurally valid but unsafe: a ten-minute wait beyond the ceiling.
	backend := backendFunc(func(ctx context.Context, req Request) ([]models.Action, error) {
		return []models.Action{
			{Type: models.ActionWait, DurationMS: (10 * time.Minute).Milliseconds()},
		}, nil
	})
	p := New(backend, Config{MaxWait: time.Minute})

	plan := p.Plan(context.Background(), Request{Task: "wait forever"})

	assert.Equal(t, models.PlanSourceFallback, plan.Source)
}

func TestPlanMissingParameterFallsBack(t *testing.T) {
	backend := backendFunc(func(ctx context.Context, req Request) ([]models.Action, error) {
		return []models.Action{{Type: models.ActionClick}}, nil
	})
	p := New(backend, DefaultConfig())

	plan := p.Plan(context.Background(), Request{Task: "click something"})

	assert.Equal(t, models.PlanSourceFallback, plan.Source)
}

func TestPlanSlowBackendFallsBack(t *testing.T) {
	backend := backendFunc(func(ctx context.Context, req Request) ([]models.Action, error) {
		select {
		case <-time.After(time.Second):
			return []models.Action{{Type: models.ActionScreenshot}}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	p := New(backend, Config{Timeout: 20 * time.Millisecond})

	start := time.Now()
	plan := p.Plan(context.Background(), Request{Task: "anything"})

	assert.Equal(t, models.PlanSourceFallback, plan.Source)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestFallbackDeterministic(t *testing.T) {
	req := Request{Task: "check the homepage", TargetURL: "https://example.com"}

	first := Fallback(req)
	second := Fallback(req)

	assert.Equal(t, first, second)
}

func TestFallbackWithTargetURL(t *testing.T) {
	plan := Fallback(Request{Task: "summarize", TargetURL: "https://example.com"})

	require.Len(t, plan.Steps, 3)
	assert.Equal(t, models.ActionNavigate, plan.Steps[0].Type)
	assert.Equal(t, "https://example.com", plan.Steps[0].URL)
	assert.Equal(t, models.ActionWait, plan.Steps[1].Type)
	assert.Equal(t, int64(2000), plan.Steps[1].DurationMS)
	assert.Equal(t, models.ActionGetPageSource, plan.Steps[2].Type)
}

func TestFallbackScreenshotIntent(t *testing.T) {
	plan := Fallback(Request{Task: "take a Screenshot of the page"})

	require.Len(t, plan.Steps, 1)
	assert.Equal(t, models.ActionScreenshot, plan.Steps[0].Type)
}

func TestFallbackScrollIntent(t *testing.T) {
	plan := Fallback(Request{Task: "scroll down and read"})

	require.Len(t, plan.Steps, 2)
	assert.Equal(t, models.ActionScroll, plan.Steps[0].Type)
	assert.Equal(t, models.ScrollDown, plan.Steps[0].Direction)
	assert.Equal(t, models.ActionGetPageSource, plan.Steps[1].Type)
}

func TestFallbackDefault(t *testing.T) {
	plan := Fallback(Request{Task: "what does this page say"})

	require.Len(t, plan.Steps, 1)
	assert.Equal(t, models.ActionGetPageSource, plan.Steps[0].Type)
}

func TestFallbackPlansAreValid(t *testing.T) {
	reqs := []Request{
		{Task: "screenshot please", TargetURL: "https://example.com"},
		{Task: "scroll around"},
		{Task: "anything else"},
		{Task: ""},
	}
	for _, req := range reqs {
		plan := Fallback(req)
		require.NotEmpty(t, plan.Steps)
		for _, step := range plan.Steps {
			assert.NoError(t, step.Validate(time.Minute))
		}
	}
}
