// Package runner executes submitted code in an embedded Go interpreter.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"reflect"
	"sync"
	"time"

	"github.com/okian/detective/internal/domain/model"
	"github.com/okian/detective/pkg/logger"
	"github.com/okian/detective/pkg/metrics"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Runner executes code and reports its output or failure.
type Runner interface {
	Run(ctx context.Context, code string) model.RunResult
}

// ErrorPrefix starts every failure message.
const ErrorPrefix = "⚠️ Error: "

// DefaultAllowedPackages are importable by submitted code. Filesystem,
// process and network packages are absent.
var DefaultAllowedPackages = []string{
	"bytes", "errors", "fmt", "math", "regexp", "sort", "strconv", "strings", "unicode", "unicode/utf8",
}

// Interpreter runs code with yaegi. Every run gets a fresh interpreter, so
// runs share no state.
type Interpreter struct {
	allowed map[string]bool
	exports interp.Exports
	timeout time.Duration
	logger  logger.Logger
}

var _ Runner = (*Interpreter)(nil)

// New returns an interpreter-backed runner.
func New(opts ...Option) *Interpreter {
	i := &Interpreter{
		logger: logger.Get().Named("runner"),
	}
	WithAllowedPackages(DefaultAllowedPackages...)(i)
	for _, opt := range opts {
		opt(i)
	}
	i.exports = i.symbols()
	return i
}

// Run evaluates code. A program with package main and func main runs main;
// bare statements run as a script. Everything written to stdout and stderr
// is the output. Code with go statements is refused before it runs.
// Failures never escape as errors or panics.
func (i *Interpreter) Run(ctx context.Context, code string) (res model.RunResult) {
	start := time.Now()
	defer func() {
		result := "ok"
		if !res.OK {
			result = "error"
		}
		metrics.RecordCodeRun(result, float64(time.Since(start).Milliseconds()))
	}()

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	out := &syncBuffer{}
	err := checkSource(code)
	if err == nil {
		err = i.eval(ctx, code, out)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		i.logger.Debug(ctx, "run failed", logger.Error(err))
		return model.RunResult{OK: false, Err: ErrorPrefix + err.Error()}
	}
	return model.RunResult{OK: true, Output: out.String()}
}

func (i *Interpreter) eval(ctx context.Context, code string, out *syncBuffer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	vm := interp.New(interp.Options{Stdout: out, Stderr: out})
	if err := vm.Use(i.exports); err != nil {
		return fmt.Errorf("failed to load symbols: %w", err)
	}
	if _, err := vm.EvalWithContext(ctx, code); err != nil {
		return err
	}
	return nil
}

// symbols filters the standard library down to the allowed packages.
// Exports are keyed "importpath/name".
func (i *Interpreter) symbols() interp.Exports {
	ex := make(interp.Exports, len(i.allowed))
	for key, syms := range stdlib.Symbols {
		if i.allowed[path.Dir(key)] {
			ex[key] = make(map[string]reflect.Value, len(syms))
			for name, v := range syms {
				ex[key][name] = v
			}
		}
	}
	return ex
}

// syncBuffer guards output written by a run that outlives its deadline.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
