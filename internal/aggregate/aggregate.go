// Package aggregate runs independent context fetches concurrently with
// per-branch failure isolation.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Fetcher is one named data-fetch operation. Fallback is the value used
// when Fetch fails or panics.
type Fetcher struct {
	Name     string
	Fetch    func(ctx context.Context) (string, error)
	Fallback string
}

// Result is the outcome of one fetcher. Err records the original failure;
// Value is always usable.
type Result struct {
	Name  string
	Value string
	Err   error
}

// Run executes all fetchers concurrently and returns one result per fetcher,
// in input order. A failing or panicking fetch is replaced by its fallback
// value and does not cancel its siblings; Run itself never fails.
func Run(ctx context.Context, fetchers []Fetcher) []Result {
	results := make([]Result, len(fetchers))

	var g errgroup.Group
	for i, f := range fetchers {
		g.Go(func() error {
			value, err := safeFetch(ctx, f)
			if err != nil {
				slog.Warn("context fetch failed, using fallback", "source", f.Name, "error", err)
				results[i] = Result{Name: f.Name, Value: f.Fallback, Err: err}
				return nil
			}
			results[i] = Result{Name: f.Name, Value: value}
			return nil
		})
	}
	g.Wait()

	return results
}

// safeFetch invokes the fetch and converts a panic into an error so one
// misbehaving source cannot take down the turn.
func safeFetch(ctx context.Context, f Fetcher) (value string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch panicked: %v", r)
		}
	}()
	return f.Fetch(ctx)
}
