// Package api exposes the service over HTTP: session management, direct
// actions, task automation, and extraction.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/pagepilot/pagepilot/internal/apperr"
	"github.com/pagepilot/pagepilot/internal/executor"
	"github.com/pagepilot/pagepilot/internal/extract"
	"github.com/pagepilot/pagepilot/internal/session"
	"github.com/pagepilot/pagepilot/internal/task"
	"github.com/pagepilot/pagepilot/pkg/models"
)

// pageSettleWait gives a freshly navigated page time to render before its
// source is read for extraction.
var pageSettleWait = 2 * time.Second

// Handler holds the dependencies of all HTTP handlers.
type Handler struct {
	registry *session.Registry
	exec     *executor.Executor
	runner   *task.Runner
}

// NewHandler creates the HTTP handler set.
func NewHandler(registry *session.Registry, exec *executor.Executor, runner *task.Runner) *Handler {
	return &Handler{registry: registry, exec: exec, runner: runner}
}

// closeOnDriverFailure releases a session whose tab died mid-action. A
// DriverError is fatal to the owning session; handing it out again would only
// produce more failures against a dead tab.
func (h *Handler) closeOnDriverFailure(sess *session.Session, err error) {
	if apperr.CodeOf(err) != apperr.CodeDriverError {
		return
	}
	if cerr := h.registry.Close(sess.ID()); cerr != nil {
		log.Printf("api: closing session %s after driver failure: %v", sess.ID(), cerr)
	}
}

// Health handles GET /v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "pagepilot",
	})
}

// CreateSession handles POST /v1/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid request body: %v", err)
			return
		}
	}

	timeout := time.Duration(req.TimeoutSeconds) * time.Second
	sess, err := h.registry.Create(r.Context(), timeout)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sess.Info())
}

// GetSession handles GET /v1/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

// ListSessions handles GET /v1/sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.List())
}

// DeleteSession handles DELETE /v1/sessions/{id}. Idempotent.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Close(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CleanupSessions handles DELETE /v1/sessions: administrative reset.
func (h *Handler) CleanupSessions(w http.ResponseWriter, r *http.Request) {
	closed := h.registry.CleanupAll()
	writeJSON(w, http.StatusOK, models.CleanupResponse{Closed: closed})
}

// NavigateSession handles POST /v1/sessions/{id}/navigate.
func (h *Handler) NavigateSession(w http.ResponseWriter, r *http.Request) {
	var req models.NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: %v", err)
		return
	}
	if req.URL == "" {
		writeBadRequest(w, "url is required")
		return
	}

	sess, err := h.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.exec.Execute(r.Context(), sess, models.Action{
		Type: models.ActionNavigate,
		URL:  req.URL,
	})
	if err != nil {
		h.closeOnDriverFailure(sess, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.NavigateResponse{
		Success:    true,
		CurrentURL: res.Output,
	})
}

// ExecuteAction handles POST /v1/sessions/{id}/actions. The body is one
// action in tagged wire form; decode failures are validation errors, while
// execution failures come back classified in the step result.
func (h *Handler) ExecuteAction(w http.ResponseWriter, r *http.Request) {
	var action models.Action
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		writeBadRequest(w, "invalid action: %v", err)
		return
	}

	sess, err := h.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.exec.Execute(r.Context(), sess, action)
	if err != nil {
		h.closeOnDriverFailure(sess, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Screenshot handles GET /v1/sessions/{id}/screenshot, returning raw PNG.
func (h *Handler) Screenshot(w http.ResponseWriter, r *http.Request) {
	sess, err := h.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.exec.Execute(r.Context(), sess, models.Action{Type: models.ActionScreenshot})
	if err != nil {
		h.closeOnDriverFailure(sess, err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Write(res.Data)
}

// RunTask handles POST /v1/tasks.
func (h *Handler) RunTask(w http.ResponseWriter, r *http.Request) {
	var req models.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: %v", err)
		return
	}

	result, err := h.runner.Run(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ExtractProduct handles POST /v1/extract/product: navigate (in an existing
// or temporary session), wait for the page to settle, read its source, and
// extract product fields.
func (h *Handler) ExtractProduct(w http.ResponseWriter, r *http.Request) {
	var req models.ProductExtractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: %v", err)
		return
	}
	if req.URL == "" {
		writeBadRequest(w, "url is required")
		return
	}

	start := time.Now()

	sess, ephemeral, err := h.resolveSession(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if ephemeral && !req.KeepSession {
		defer h.registry.Close(sess.ID())
	}

	html, err := h.loadPage(r.Context(), sess, req.URL)
	if err != nil {
		h.closeOnDriverFailure(sess, err)
		writeError(w, err)
		return
	}

	fields, err := extract.Product(html, req.URL)
	if err != nil {
		writeJSON(w, http.StatusOK, models.ProductExtractionResponse{
			Success:          false,
			SessionID:        sess.ID(),
			Error:            err.Error(),
			ExtractionTimeMS: time.Since(start).Milliseconds(),
		})
		return
	}

	writeJSON(w, http.StatusOK, models.ProductExtractionResponse{
		Success:   true,
		SessionID: sess.ID(),
		Product: &models.ProductInfo{
			Name:         fields.Name,
			Description:  fields.Description,
			Price:        fields.Price,
			Availability: fields.Availability,
			Brand:        fields.Brand,
			Rating:       fields.Rating,
			ImageURL:     fields.ImageURL,
			Platform:     fields.Platform,
			RawData:      fields.RawData,
		},
		ExtractionTimeMS: time.Since(start).Milliseconds(),
	})
}

// ExtractText handles POST /v1/extract/text: load the page and return its
// readable text plus the detected storefront platform.
func (h *Handler) ExtractText(w http.ResponseWriter, r *http.Request) {
	var req models.TextExtractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: %v", err)
		return
	}
	if req.URL == "" {
		writeBadRequest(w, "url is required")
		return
	}

	start := time.Now()

	sess, ephemeral, err := h.resolveSession(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if ephemeral && !req.KeepSession {
		defer h.registry.Close(sess.ID())
	}

	html, err := h.loadPage(r.Context(), sess, req.URL)
	if err != nil {
		h.closeOnDriverFailure(sess, err)
		writeError(w, err)
		return
	}

	text, err := extract.CleanText(html)
	if err != nil {
		writeJSON(w, http.StatusOK, models.TextExtractionResponse{
			Success:          false,
			SessionID:        sess.ID(),
			Error:            err.Error(),
			ExtractionTimeMS: time.Since(start).Milliseconds(),
		})
		return
	}
	platform, _, _ := extract.DetectPlatform(html)

	writeJSON(w, http.StatusOK, models.TextExtractionResponse{
		Success:          true,
		SessionID:        sess.ID(),
		Text:             text,
		Platform:         platform,
		ExtractionTimeMS: time.Since(start).Milliseconds(),
	})
}

// ExtractSelectors handles POST /v1/sessions/{id}/extract: pull fields from
// the session's current page with caller-supplied selectors.
func (h *Handler) ExtractSelectors(w http.ResponseWriter, r *http.Request) {
	var req models.ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: %v", err)
		return
	}
	if len(req.Selectors) == 0 {
		writeBadRequest(w, "selectors are required")
		return
	}

	sess, err := h.registry.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.exec.Execute(r.Context(), sess, models.Action{Type: models.ActionGetPageSource})
	if err != nil {
		h.closeOnDriverFailure(sess, err)
		writeError(w, err)
		return
	}

	data, err := extract.BySelectors(res.Output, req.Selectors)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ExtractResponse{Success: true, Data: data})
}

func (h *Handler) resolveSession(ctx context.Context, id string) (*session.Session, bool, error) {
	if id != "" {
		sess, err := h.registry.Get(id)
		return sess, false, err
	}
	sess, err := h.registry.Create(ctx, 0)
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// loadPage navigates, lets the page settle, and returns its source.
func (h *Handler) loadPage(ctx context.Context, sess *session.Session, url string) (string, error) {
	steps := []models.Action{
		{Type: models.ActionNavigate, URL: url},
		{Type: models.ActionWait, DurationMS: pageSettleWait.Milliseconds()},
		{Type: models.ActionGetPageSource},
	}

	var output string
	for _, action := range steps {
		res, err := h.exec.Execute(ctx, sess, action)
		if err != nil {
			return "", err
		}
		output = res.Output
	}
	return output, nil
}
