package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/detective/internal/domain/analytics"
	"github.com/okian/detective/internal/domain/model"
)

// AnalyticsDependencies records game results and feedback.
type AnalyticsDependencies interface {
	RecordResult(ctx context.Context, res analytics.GameResult) (model.Attempt, bool)
	Attempts(ctx context.Context) []model.Attempt
	Feedback(ctx context.Context, fb model.Feedback) (model.Feedback, bool)
	Feedbacks(ctx context.Context) []model.Feedback
}

// AnalyticsHandler handles attempt and feedback requests.
type AnalyticsHandler struct {
	deps AnalyticsDependencies
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(deps AnalyticsDependencies) *AnalyticsHandler {
	return &AnalyticsHandler{deps: deps}
}

type attemptResponse struct {
	Attempt model.Attempt `json:"attempt"`
	Saved   bool          `json:"saved"`
}

type feedbackResponse struct {
	Feedback model.Feedback `json:"feedback"`
	Saved    bool           `json:"saved"`
}

// HandleAttempts handles GET|POST /attempts.
func (h *AnalyticsHandler) HandleAttempts(w http.ResponseWriter, r *http.Request) {
	const op = "api.attempts"
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.Attempts(r.Context()))
	case http.MethodPost:
		var res analytics.GameResult
		if !decodeBody(w, r, op, &res) {
			return
		}
		if strings.TrimSpace(res.GameID) == "" {
			writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, errMissing("gameId")))
			return
		}
		attempt, saved := h.deps.RecordResult(r.Context(), res)
		writeJSON(w, http.StatusCreated, attemptResponse{Attempt: attempt, Saved: saved})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// HandleFeedback handles GET|POST /feedback.
func (h *AnalyticsHandler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	const op = "api.feedback"
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.Feedbacks(r.Context()))
	case http.MethodPost:
		var fb model.Feedback
		if !decodeBody(w, r, op, &fb) {
			return
		}
		fb, saved := h.deps.Feedback(r.Context(), fb)
		writeJSON(w, http.StatusCreated, feedbackResponse{Feedback: fb, Saved: saved})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}
