package l5dataset

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Loader fetches several samples concurrently, the way a batching
// framework's worker pool would.
type Loader struct {
	ds      *Dataset
	workers int
}

// NewLoader returns a Loader running at most workers Get calls at once.
func NewLoader(ds *Dataset, workers int) *Loader {
	if workers < 1 {
		workers = 1
	}
	return &Loader{ds: ds, workers: workers}
}

// Load returns the samples for indices in the same order. The first error
// cancels the remaining fetches.
func (l *Loader) Load(ctx context.Context, indices []int) ([]*Sample, error) {
	out := make([]*Sample, len(indices))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for k, idx := range indices {
		g.Go(func() error {
			s, err := l.ds.Get(ctx, idx)
			if err != nil {
				return err
			}
			out[k] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load batch: %w", err)
	}
	return out, nil
}

// LoadEach fetches every index independently. A failure does not cancel
// the other fetches; errs[k] is the error for indices[k] and samples[k] is
// nil when it is set. Each scene is built once, so an Observer sees it once.
func (l *Loader) LoadEach(ctx context.Context, indices []int) (samples []*Sample, errs []error) {
	samples = make([]*Sample, len(indices))
	errs = make([]error, len(indices))
	var g errgroup.Group
	g.SetLimit(l.workers)
	for k, idx := range indices {
		g.Go(func() error {
			samples[k], errs[k] = l.ds.Get(ctx, idx)
			return nil
		})
	}
	_ = g.Wait()
	return samples, errs
}

// Batches splits 0..n-1 into consecutive index groups of at most size.
func Batches(n, size int) [][]int {
	if size < 1 {
		size = 1
	}
	var out [][]int
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		b := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			b = append(b, i)
		}
		out = append(out, b)
	}
	return out
}
