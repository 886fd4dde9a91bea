// Package grader checks program output against an expected answer.
package grader

import (
	"context"
	"strings"

	"github.com/okian/detective/internal/domain/model"
	"github.com/okian/detective/pkg/logger"
	"github.com/okian/detective/pkg/metrics"
)

// Compare reports whether actual matches expected line for line after
// removing carriage returns, trimming lines, dropping blank lines and
// canonicalizing numbers. There is no partial credit.
func Compare(actual string, expected []string) bool {
	got := normalizeLines(strings.Split(strings.TrimSpace(strings.ReplaceAll(actual, "\r", "")), "\n"))
	want := normalizeLines(expected)
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func normalizeLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		out = append(out, Normalize(l))
	}
	return out
}

// Runner executes submitted code.
type Runner interface {
	Run(ctx context.Context, code string) model.RunResult
}

// Verdict is the result of grading one submission.
type Verdict struct {
	Passed bool   `json:"passed"`
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// Grader runs code and compares its output.
type Grader struct {
	runner Runner
	logger logger.Logger
}

// New returns a grader executing code with r.
func New(r Runner, opts ...Option) *Grader {
	g := &Grader{
		runner: r,
		logger: logger.Get().Named("grader"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Grade runs code and checks its output against expected. A run failure is
// a failed verdict carrying the failure text.
func (g *Grader) Grade(ctx context.Context, code string, expected []string) Verdict {
	res := g.runner.Run(ctx, code)
	if !res.OK {
		metrics.RecordGrade("error")
		g.logger.Debug(ctx, "submission failed to run", logger.String("error", res.Err))
		return Verdict{Passed: false, Error: res.Err}
	}

	passed := Compare(res.Output, expected)
	verdict := "fail"
	if passed {
		verdict = "pass"
	}
	metrics.RecordGrade(verdict)
	g.logger.Debug(ctx, "submission graded", logger.Bool("passed", passed), logger.Int("expected_lines", len(expected)))
	return Verdict{Passed: passed, Output: res.Output}
}
