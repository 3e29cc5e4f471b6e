package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"dailyprompt/internal/models"
	"dailyprompt/internal/security"
	"dailyprompt/internal/service"
	"dailyprompt/internal/validation"
)

// PromptResolver resolves a group's daily prompt for a viewer
type PromptResolver interface {
	Resolve(ctx context.Context, groupID, date, viewerID string) (*models.Assignment, error)
}

// Handler serves the prompt API
type Handler struct {
	prompts PromptResolver
	startup *StartupStatus
	limiter *security.RateLimiter
	logger  *zap.Logger
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithRateLimiter limits prompt requests per client
func WithRateLimiter(rl *security.RateLimiter) HandlerOption {
	return func(h *Handler) { h.limiter = rl }
}

// NewHandler creates a new handler. A nil startup tracker means always ready.
func NewHandler(prompts PromptResolver, startup *StartupStatus, logger *zap.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if startup == nil {
		startup = NewStartupStatus()
		startup.MarkReady()
	}
	h := &Handler{prompts: prompts, startup: startup, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetPrompt handles GET /groups/{groupID}/prompts/{date}
func (h *Handler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	groupID := strings.TrimSpace(chi.URLParam(r, "groupID"))
	date := strings.TrimSpace(chi.URLParam(r, "date"))
	viewerID := strings.TrimSpace(r.URL.Query().Get(ViewerQueryParam))

	if err := validation.ValidateID("group", groupID); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, CodeInvalidID, err.Error(), "", nil)
		return
	}
	if err := validation.ValidateOptionalID(ViewerQueryParam, viewerID); err != nil {
		respondWithError(w, h.logger, http.StatusBadRequest, CodeInvalidID, err.Error(), "", nil)
		return
	}

	a, err := h.prompts.Resolve(r.Context(), groupID, date, viewerID)
	switch {
	case errors.Is(err, service.ErrInvalidDate):
		respondWithError(w, h.logger, http.StatusBadRequest, CodeInvalidDate, ErrInvalidDate, "", nil)
		return
	case errors.Is(err, service.ErrGroupNotFound):
		respondWithError(w, h.logger, http.StatusNotFound, CodeGroupNotFound, ErrGroupNotFound, "", nil)
		return
	case errors.Is(err, service.ErrUpstreamUnavailable):
		respondWithError(w, h.logger, http.StatusServiceUnavailable, CodeUnavailable, ErrServiceUnavailable, "failed to resolve prompt", err)
		return
	case err != nil:
		respondWithError(w, h.logger, http.StatusInternalServerError, CodeInternal, ErrInternalServerError, "failed to resolve prompt", err)
		return
	}

	if a == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, newPromptResponse(a))
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
