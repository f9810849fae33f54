// Package engine evaluates scene programs. It wraps zygomys in a
// sandboxed environment and produces a scene.Document from user source.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
	"go.uber.org/zap"

	"github.com/chazu/chisel/pkg/scene"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning represents a non-fatal warning produced during evaluation.
type EvalWarning struct {
	Line    int
	Col     int
	Message string
	NodeID  scene.NodeID
}

// EvalResult bundles the full output of Check.
type EvalResult struct {
	Document *scene.Document
	Errors   []EvalError
	Warnings []EvalWarning
	Err      error // fatal: timeout, panic or superseded
}

// OK reports whether the document can be built.
func (r EvalResult) OK() bool {
	return r.Err == nil && len(r.Errors) == 0 && r.Document != nil
}

// Engine wraps the zygomys interpreter.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	timeout    time.Duration
	log        *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for evaluation diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithTimeout overrides EvalTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: EvalTimeout, log: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate takes scene source code and produces a new Document.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns document + nil errors + nil error
//   - On parse/eval failure: returns nil document + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*scene.Document, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		d, evalErrs, err := e.evaluate(source)
		ch <- evalResult{doc: d, errors: evalErrs, err: err}
	}()

	d, evalErrs, err := waitWithTimeout(ch, gen, e.timeout, &e.mu, &e.generation)
	switch {
	case err != nil:
		e.log.Warn("evaluation failed", zap.Uint64("generation", gen), zap.Error(err))
	case len(evalErrs) > 0:
		e.log.Debug("evaluation errors", zap.Uint64("generation", gen), zap.Int("errors", len(evalErrs)))
	default:
		e.log.Debug("evaluated", zap.Uint64("generation", gen), zap.Int("nodes", d.NodeCount()))
	}
	return d, evalErrs, err
}

// Check evaluates source and validates the resulting document. Validation
// errors are reported as EvalErrors and warnings as EvalWarnings.
func (e *Engine) Check(source string) EvalResult {
	d, evalErrs, err := e.Evaluate(source)
	res := EvalResult{Document: d, Errors: evalErrs, Err: err}
	if d == nil {
		return res
	}
	for _, f := range scene.Validate(d) {
		if f.Severity == scene.SeverityError {
			res.Errors = append(res.Errors, EvalError{Message: f.Error()})
			continue
		}
		res.Warnings = append(res.Warnings, EvalWarning{Message: f.Message, NodeID: f.NodeID})
	}
	return res
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*scene.Document, []EvalError, error) {
	// Empty source is a valid program that produces an empty document.
	if strings.TrimSpace(source) == "" {
		return scene.New(), nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := newBuilder()
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return b.finish(), nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// Try to extract line numbers from the error message.
	// zygomys formats parse errors as "Error on line N: <details>\n"
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		detail := strings.TrimSpace(m[2])
		return []EvalError{{
			Line:    line,
			Col:     0,
			Message: detail,
		}}
	}

	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		detail := strings.TrimSpace(m[2])
		return []EvalError{{
			Line:    line,
			Col:     0,
			Message: detail,
		}}
	}

	// Fallback: no line info available.
	return []EvalError{{
		Line:    0,
		Col:     0,
		Message: strings.TrimSpace(msg),
	}}
}
