package api

import (
	"context"
	"net/http"

	"github.com/okian/detective/internal/domain/theme"
)

// ThemeDependencies reads and changes the display theme.
type ThemeDependencies interface {
	Theme() theme.Presentation
	ApplyTheme(ctx context.Context, mode string) theme.Presentation
	ToggleTheme(ctx context.Context) theme.Presentation
	ToggleContrast(ctx context.Context) theme.Presentation
}

// ThemeHandler handles theme requests.
type ThemeHandler struct {
	deps ThemeDependencies
}

// NewThemeHandler creates a new theme handler.
func NewThemeHandler(deps ThemeDependencies) *ThemeHandler {
	return &ThemeHandler{deps: deps}
}

type themeRequest struct {
	Mode string `json:"mode"`
}

// HandleTheme handles GET|POST /theme.
func (h *ThemeHandler) HandleTheme(w http.ResponseWriter, r *http.Request) {
	const op = "api.theme"
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.Theme())
	case http.MethodPost:
		var req themeRequest
		if !decodeBody(w, r, op, &req) {
			return
		}
		writeJSON(w, http.StatusOK, h.deps.ApplyTheme(r.Context(), req.Mode))
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// HandleToggle handles POST /theme/toggle.
func (h *ThemeHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.ToggleTheme(r.Context()))
}

// HandleContrast handles POST /theme/contrast.
func (h *ThemeHandler) HandleContrast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.ToggleContrast(r.Context()))
}
