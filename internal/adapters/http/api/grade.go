package api

import (
	"context"
	"net/http"

	"github.com/okian/detective/internal/domain/grader"
	"github.com/okian/detective/internal/domain/model"
)

// GradeDependencies runs and grades submitted code.
type GradeDependencies interface {
	Run(ctx context.Context, code string) model.RunResult
	Grade(ctx context.Context, code string, expected []string) grader.Verdict
}

// GradeHandler handles code submissions.
type GradeHandler struct {
	deps GradeDependencies
}

// NewGradeHandler creates a new grade handler.
func NewGradeHandler(deps GradeDependencies) *GradeHandler {
	return &GradeHandler{deps: deps}
}

type gradeRequest struct {
	Code     string   `json:"code"`
	Expected []string `json:"expected"`
}

// HandleGrade handles POST /grade. A submission that fails to run is still
// a 200 with a failed verdict.
func (h *GradeHandler) HandleGrade(w http.ResponseWriter, r *http.Request) {
	const op = "api.grade"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req gradeRequest
	if !decodeBody(w, r, op, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Grade(r.Context(), req.Code, req.Expected))
}

// HandleRun handles POST /run.
func (h *GradeHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.run"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req gradeRequest
	if !decodeBody(w, r, op, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Run(r.Context(), req.Code))
}
