// Package api exposes the session over a local JSON HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

const (
	defaultMaxLimit = 100
	maxBodyBytes    = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the session.
type Dependencies interface {
	StatsProvider
	IdentityDependencies
	ProgressDependencies
	LeaderboardDependencies
	GradeDependencies
	AnalyticsDependencies
	ThemeDependencies
}

// Server wires HTTP routes for the session API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	identityHandler    *IdentityHandler
	progressHandler    *ProgressHandler
	leaderboardHandler *LeaderboardHandler
	gradeHandler       *GradeHandler
	analyticsHandler   *AnalyticsHandler
	themeHandler       *ThemeHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// leaderboard limit query parameter; values below 1 use the default.
func NewServer(deps Dependencies, maxLimit int) *Server {
	if maxLimit < 1 {
		maxLimit = defaultMaxLimit
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		identityHandler:    NewIdentityHandler(deps),
		progressHandler:    NewProgressHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		gradeHandler:       NewGradeHandler(deps),
		analyticsHandler:   NewAnalyticsHandler(deps),
		themeHandler:       NewThemeHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/identity", MetricsMiddleware(s.identityHandler.HandleIdentity, "identity"))
	mux.HandleFunc("/progress/", MetricsMiddleware(s.progressHandler.HandleProgress, "progress"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGames, "leaderboard"))
	mux.HandleFunc("/leaderboard/", MetricsMiddleware(s.leaderboardHandler.HandleLeaderboard, "leaderboard"))
	mux.HandleFunc("/grade", MetricsMiddleware(s.gradeHandler.HandleGrade, "grade"))
	mux.HandleFunc("/run", MetricsMiddleware(s.gradeHandler.HandleRun, "run"))
	mux.HandleFunc("/attempts", MetricsMiddleware(s.analyticsHandler.HandleAttempts, "attempts"))
	mux.HandleFunc("/feedback", MetricsMiddleware(s.analyticsHandler.HandleFeedback, "feedback"))
	mux.HandleFunc("/theme", MetricsMiddleware(s.themeHandler.HandleTheme, "theme"))
	mux.HandleFunc("/theme/toggle", MetricsMiddleware(s.themeHandler.HandleToggle, "theme"))
	mux.HandleFunc("/theme/contrast", MetricsMiddleware(s.themeHandler.HandleContrast, "theme"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeBody reads a bounded JSON body into dst and writes the error
// response itself when it fails.
func decodeBody(w http.ResponseWriter, r *http.Request, op string, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", wrapKind(op, ErrBadRequest, err))
		return false
	}
	writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
	return false
}

// pathParam returns the single path segment after prefix, or "" when the
// path has none or more than one.
func pathParam(r *http.Request, prefix string) string {
	p := strings.TrimPrefix(r.URL.Path, prefix)
	if p == "" || strings.Contains(p, "/") {
		return ""
	}
	return p
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}
