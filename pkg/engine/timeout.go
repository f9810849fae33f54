package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/chisel/pkg/scene"
)

// EvalTimeout is the default limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when an evaluation runs past its limit.
	ErrTimeout = errors.New("evaluation timed out")
	// ErrSuperseded is returned when a newer evaluation started while this
	// one was running.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

// evalResult carries the outcome of one evaluation goroutine.
type evalResult struct {
	doc    *scene.Document
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch for at most timeout. Results
// whose generation is no longer current are discarded.
//
// On timeout the goroutine may still be running; zygomys cannot be
// interrupted, so its result is dropped when it eventually arrives.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	timeout time.Duration,
	mu *sync.Mutex,
	currentGen *uint64,
) (*scene.Document, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, ErrSuperseded
		}
		return res.doc, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}
