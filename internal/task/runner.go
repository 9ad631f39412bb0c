// Package task orchestrates plan execution: it resolves or creates the
// session, obtains a plan, and runs the steps in order.
package task

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pagepilot/pagepilot/internal/apperr"
	"github.com/pagepilot/pagepilot/internal/executor"
	"github.com/pagepilot/pagepilot/internal/planner"
	"github.com/pagepilot/pagepilot/internal/session"
	"github.com/pagepilot/pagepilot/pkg/models"
)

// stepDelay paces consecutive steps so pages settle between interactions.
var stepDelay = 500 * time.Millisecond

// Runner ties the registry, executor and planner together for run_task.
type Runner struct {
	registry *session.Registry
	exec     *executor.Executor
	planner  *planner.Planner
}

// NewRunner creates a task runner.
func NewRunner(registry *session.Registry, exec *executor.Executor, pl *planner.Planner) *Runner {
	return &Runner{registry: registry, exec: exec, planner: pl}
}

// Run plans and executes a task request. Registry failures (unknown session,
// session limit) surface to the caller; planner failures never do, since they
// arrive here already downgraded to a fallback plan.
func (r *Runner) Run(ctx context.Context, req models.TaskRequest) (*models.TaskResult, error) {
	if req.TaskDescription == "" {
		return nil, apperr.New(apperr.CodeValidation, "task_description is required")
	}

	sess, ephemeral, err := r.resolveSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	// An ephemeral session is closed once the request is done unless the
	// caller asked to keep it for reuse.
	keep := !ephemeral || req.KeepSession
	defer func() {
		if !keep {
			if cerr := r.registry.Close(sess.ID()); cerr != nil {
				log.Printf("task: closing ephemeral session %s: %v", sess.ID(), cerr)
			}
		}
	}()

	plan := r.planner.Plan(ctx, planner.Request{
		Task:      req.TaskDescription,
		TargetURL: req.TargetURL,
		Context:   req.Context,
	})

	start := time.Now()
	steps, sessionDead := r.execute(ctx, sess, plan)

	if sessionDead {
		// A dead tab cannot be reused; close the session regardless of
		// ownership so it is not handed out again.
		keep = false
		if req.SessionID != "" {
			if cerr := r.registry.Close(sess.ID()); cerr != nil {
				log.Printf("task: closing dead session %s: %v", sess.ID(), cerr)
			}
		}
	}

	success := true
	for _, step := range steps {
		if !step.Success {
			success = false
			break
		}
	}

	return &models.TaskResult{
		TaskID:      uuid.New().String(),
		SessionID:   sess.ID(),
		Plan:        plan.Source,
		Description: plan.Description,
		Success:     success,
		Steps:       steps,
		ElapsedMS:   time.Since(start).Milliseconds(),
	}, nil
}

// execute runs the plan fail-soft: a failed step is recorded and later steps
// still run, because partial diagnostic output beats aborting. The exception
// is a DriverError, which marks the tab dead and skips the remainder.
func (r *Runner) execute(ctx context.Context, sess *session.Session, plan models.Plan) ([]models.StepResult, bool) {
	results := make([]models.StepResult, 0, len(plan.Steps))

	for i, action := range plan.Steps {
		stepID := uuid.New().String()

		res, err := r.exec.Execute(ctx, sess, action)
		step := models.StepResult{
			StepID:  stepID,
			Action:  action.Type,
			Success: err == nil,
			Output:  res.Output,
		}
		if err != nil {
			step.Error = err.Error()
			log.Printf("task: step %d (%s) failed: %v", i, action.Type, err)
		}
		results = append(results, step)

		if apperr.CodeOf(err) == apperr.CodeDriverError {
			log.Printf("task: driver failure on step %d, skipping %d remaining steps", i, len(plan.Steps)-i-1)
			return results, true
		}

		if i < len(plan.Steps)-1 {
			select {
			case <-time.After(stepDelay):
			case <-ctx.Done():
				return results, false
			}
		}
	}

	return results, false
}

// resolveSession returns the requested session or creates an ephemeral one.
func (r *Runner) resolveSession(ctx context.Context, id string) (*session.Session, bool, error) {
	if id != "" {
		sess, err := r.registry.Get(id)
		if err != nil {
			return nil, false, err
		}
		return sess, false, nil
	}

	sess, err := r.registry.Create(ctx, 0)
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}
