package api

import (
	"context"
	"net/http"

	"github.com/okian/detective/internal/domain/model"
)

// ProgressDependencies loads and stores per-game progress.
type ProgressDependencies interface {
	LoadProgress(ctx context.Context, name, group, gameID string) model.Progress
	SaveProgress(ctx context.Context, rec model.Progress, gameID string)
	ResetProgress(ctx context.Context, name, group, gameID string)
}

// ProgressHandler handles progress requests.
type ProgressHandler struct {
	deps ProgressDependencies
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(deps ProgressDependencies) *ProgressHandler {
	return &ProgressHandler{deps: deps}
}

// HandleProgress handles GET|PUT|DELETE /progress/{game}. GET and DELETE
// take the player from the name and group query parameters; PUT takes the
// record, player included, from the body.
func (h *ProgressHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	const op = "api.progress"
	game := pathParam(r, "/progress/")
	if game == "" {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, nil))
		return
	}
	ctx := r.Context()
	q := r.URL.Query()
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.LoadProgress(ctx, q.Get("name"), q.Get("group"), game))
	case http.MethodPut:
		var rec model.Progress
		if !decodeBody(w, r, op, &rec) {
			return
		}
		if rec.Awarded == nil {
			rec.Awarded = model.NewIDSet()
		}
		h.deps.SaveProgress(ctx, rec, game)
		writeJSON(w, http.StatusOK, rec)
	case http.MethodDelete:
		h.deps.ResetProgress(ctx, q.Get("name"), q.Get("group"), game)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
