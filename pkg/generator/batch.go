package generator

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Definition is implemented by BrushDefinition and BranchDefinition.
type Definition interface {
	Validate() ValidationResult
	IsValid() bool
}

var (
	_ Definition = (*BrushDefinition)(nil)
	_ Definition = (*BranchDefinition)(nil)
)

// GenerateBatch validates independent definitions in parallel, at most
// workers at a time (GOMAXPROCS when workers <= 0). Each definition only
// touches its own state. Results are returned in input order; the error is
// non-nil only when ctx was cancelled.
func GenerateBatch(ctx context.Context, defs []Definition, workers int) ([]ValidationResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]ValidationResult, len(defs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, d := range defs {
		if d == nil {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = d.Validate()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
