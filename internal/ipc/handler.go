// Package ipc provides the HTTP API for the diet plan service.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dietplan/engine/internal/domain"
	"github.com/dietplan/engine/internal/observability"
	"github.com/dietplan/engine/internal/service"
)

// Handler holds all dependencies for the HTTP handlers.
type Handler struct {
	Plans        *service.PlanService
	Metrics      *observability.Metrics
	PollInterval time.Duration
}

// CreatePlanRequest is the body for POST /api/v1/plans.
type CreatePlanRequest struct {
	Owner   string                  `json:"owner"`
	Profile domain.BiometricProfile `json:"profile"`
}

// SubstitutionRequest is the body for
// POST /api/v1/plans/{planID}/meals/{index}/substitution.
type SubstitutionRequest struct {
	Choice   string `json:"choice"`
	Revision int    `json:"revision"`
}

// AlternativesResponse is the response for
// GET /api/v1/plans/{planID}/meals/{index}/alternatives.
type AlternativesResponse struct {
	Request    domain.SubstitutionRequest `json:"request"`
	Candidates domain.Candidates          `json:"candidates"`
}

// ResolveRequest is the body for POST /api/v1/resolve.
type ResolveRequest struct {
	Description string `json:"description"`
}

// ProgressRequest is the body for POST /api/v1/progress.
type ProgressRequest struct {
	Owner    string  `json:"owner"`
	WeightKg float64 `json:"weight_kg"`
	HeightCm float64 `json:"height_cm"`
}

// APIError is a structured error response.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Plans.DB.PingContext(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreatePlan handles POST /api/v1/plans.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}

	plan, err := h.Plans.CreatePlan(r.Context(), req.Owner, req.Profile)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

// ListPlans handles GET /api/v1/plans?owner=.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Plans.ListPlans(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if plans == nil {
		plans = []domain.DietPlan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

// LatestPlan handles GET /api/v1/plans/latest?owner=.
func (h *Handler) LatestPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.Plans.LatestPlan(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// GetPlan handles GET /api/v1/plans/{planID}.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.Plans.GetPlan(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// GetRevision handles GET /api/v1/plans/{planID}/revisions/{revision}.
func (h *Handler) GetRevision(w http.ResponseWriter, r *http.Request) {
	rev, err := strconv.Atoi(chi.URLParam(r, "revision"))
	if err != nil || rev < 1 {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "revision must be a positive integer"})
		return
	}
	plan, err := h.Plans.PlanAt(r.Context(), chi.URLParam(r, "planID"), rev)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// ListEvents handles GET /api/v1/plans/{planID}/events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Plans.History(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if events == nil {
		events = []domain.PlanEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// Alternatives handles GET /api/v1/plans/{planID}/meals/{index}/alternatives.
func (h *Handler) Alternatives(w http.ResponseWriter, r *http.Request) {
	idx, ok := mealIndex(w, r)
	if !ok {
		return
	}
	req, cands, err := h.Plans.Alternatives(r.Context(), chi.URLParam(r, "planID"), idx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AlternativesResponse{Request: req, Candidates: cands})
}

// Substitute handles POST /api/v1/plans/{planID}/meals/{index}/substitution.
func (h *Handler) Substitute(w http.ResponseWriter, r *http.Request) {
	idx, ok := mealIndex(w, r)
	if !ok {
		return
	}
	var req SubstitutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}

	plan, err := h.Plans.Substitute(r.Context(), chi.URLParam(r, "planID"), idx, req.Choice, req.Revision)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// Resolve handles POST /api/v1/resolve.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "description is required"})
		return
	}
	writeJSON(w, http.StatusOK, h.Plans.Resolve(req.Description))
}

// RecordProgress handles POST /api/v1/progress.
func (h *Handler) RecordProgress(w http.ResponseWriter, r *http.Request) {
	var req ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}

	entry, err := h.Plans.RecordProgress(r.Context(), req.Owner, req.WeightKg, req.HeightCm)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// ListProgress handles GET /api/v1/progress?owner=.
func (h *Handler) ListProgress(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Plans.ListProgress(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.ProgressEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// StreamEvents handles GET /api/v1/plans/{planID}/events/stream (SSE).
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")
	if _, err := h.Plans.GetPlan(r.Context(), planID); err != nil {
		writeError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, APIError{Code: 500, Message: "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	events, err := h.Plans.EventsSince(ctx, planID, 0)
	if err != nil {
		writeSSEError(w, flusher, err)
		return
	}
	lastSeq := int64(0)
	for _, ev := range events {
		writeSSEEvent(w, flusher, ev)
		lastSeq = ev.SeqNo
	}
	flusher.Flush()

	interval := h.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			newEvents, err := h.Plans.EventsSince(ctx, planID, lastSeq)
			if err != nil {
				return
			}
			for _, ev := range newEvents {
				writeSSEEvent(w, flusher, ev)
				lastSeq = ev.SeqNo
			}
		}
	}
}

func mealIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "meal index must be an integer"})
		return 0, false
	}
	return idx, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var engErr *domain.EngineError
	if errors.As(err, &engErr) {
		status := http.StatusInternalServerError
		switch engErr.Code {
		case domain.ErrOwnerRequired.Code, domain.ErrMealIndex.Code, domain.ErrEmptyChoice.Code:
			status = http.StatusBadRequest
		case domain.ErrPlanNotFound.Code:
			status = http.StatusNotFound
		case domain.ErrRevisionConflict.Code:
			status = http.StatusConflict
		case domain.ErrRateLimitExceeded.Code:
			status = http.StatusTooManyRequests
		case domain.ErrValidation.Code, domain.ErrRestrictionUnsatisfiable.Code, domain.ErrNoHeight.Code:
			status = http.StatusUnprocessableEntity
		}
		if status == http.StatusInternalServerError {
			observability.FromContext(r.Context()).Error("request failed", zap.Error(err))
		}
		writeJSON(w, status, APIError{Code: engErr.Code, Message: engErr.Message})
		return
	}
	observability.FromContext(r.Context()).Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, APIError{Code: -1, Message: "internal error"})
}

func writeSSEEvent(w http.ResponseWriter, f http.Flusher, ev domain.PlanEvent) {
	data, _ := json.Marshal(ev)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.EventType, data)
	f.Flush()
}

func writeSSEError(w http.ResponseWriter, f http.Flusher, err error) {
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", err.Error())
	f.Flush()
}
