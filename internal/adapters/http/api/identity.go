package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/okian/detective/internal/domain/identity"
	"github.com/okian/detective/internal/domain/model"
)

// IdentityDependencies resolves and remembers the player.
type IdentityDependencies interface {
	Identity(ctx context.Context, query url.Values) (model.Identity, bool)
	Prefill(ctx context.Context, query url.Values) identity.Fields
	Remember(ctx context.Context, id model.Identity) error
	Forget(ctx context.Context)
}

// IdentityHandler handles identity requests.
type IdentityHandler struct {
	deps IdentityDependencies
}

// NewIdentityHandler creates a new identity handler.
func NewIdentityHandler(deps IdentityDependencies) *IdentityHandler {
	return &IdentityHandler{deps: deps}
}

type identityResponse struct {
	Known    bool            `json:"known"`
	Identity model.Identity  `json:"identity"`
	Form     identity.Fields `json:"form"`
}

// HandleIdentity handles GET|POST|DELETE /identity. GET resolves the player,
// taking agent and group from the query string.
func (h *IdentityHandler) HandleIdentity(w http.ResponseWriter, r *http.Request) {
	const op = "api.identity"
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		id, ok := h.deps.Identity(ctx, query)
		writeJSON(w, http.StatusOK, identityResponse{Known: ok, Identity: id, Form: h.deps.Prefill(ctx, query)})
	case http.MethodPost:
		var id model.Identity
		if !decodeBody(w, r, op, &id) {
			return
		}
		if err := h.deps.Remember(ctx, id); err != nil {
			if errors.Is(err, identity.ErrEmptyName) {
				writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err)
			return
		}
		writeJSON(w, http.StatusOK, identityResponse{Known: true, Identity: id, Form: h.deps.Prefill(ctx, nil)})
	case http.MethodDelete:
		h.deps.Forget(ctx)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}
