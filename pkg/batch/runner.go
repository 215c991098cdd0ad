// Package batch reconstructs a series of hologram pairs that share one
// resolved sideband. Pairs are independent, so they are spread over a pool
// of goroutines; a failing pair is recorded and the others continue.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"

	"holorecon/internal/models"
	"holorecon/pkg/despike"
	"holorecon/pkg/diag"
	"holorecon/pkg/holography"
)

// Pair is one object hologram with its reference hologram. Reference may
// be nil. The matrices are only read and may be shared between pairs.
type Pair struct {
	Name      string
	Object    mat.Matrix
	Reference mat.Matrix
}

// Outcome is the result of one pair. Exactly one of Result and Err is set.
type Outcome struct {
	Name   string
	Result *holography.PairResult
	Err    error
}

// Params configures a Runner.
type Params struct {
	// NumWorkers is the number of pairs processed at once; values below 1
	// use every CPU
	NumWorkers int

	// Despike, when set, removes outliers from copies of both holograms
	// before reconstruction
	Despike *despike.Params
}

// Runner reconstructs pairs in parallel.
type Runner struct {
	pair   *holography.PairReconstructor
	params Params
	sink   diag.Sink
}

// NewRunner creates a runner around a pair reconstructor.
func NewRunner(pair *holography.PairReconstructor, params Params, sink diag.Sink) *Runner {
	if params.NumWorkers < 1 {
		params.NumWorkers = runtime.NumCPU()
	}
	return &Runner{pair: pair, params: params, sink: diag.OrNop(sink)}
}

// Run reconstructs every pair against spec and returns the outcomes in the
// order of pairs. Once ctx is done, pairs not yet started fail with the
// context error.
func (r *Runner) Run(ctx context.Context, pairs []Pair, spec models.SidebandSpec) []Outcome {
	outcomes := make([]Outcome, len(pairs))
	processed := make([]bool, len(pairs))
	for i, p := range pairs {
		outcomes[i].Name = p.Name
	}

	type pairResult struct {
		idx int
		res *holography.PairResult
		err error
	}
	jobs := make(chan int)
	resultChan := make(chan pairResult)

	workers := min(r.params.NumWorkers, max(1, len(pairs)))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				res, err := r.reconstruct(ctx, pairs[idx], spec)
				resultChan <- pairResult{idx: idx, res: res, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range pairs {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	completed := 0
	for res := range resultChan {
		completed++
		processed[res.idx] = true
		outcomes[res.idx].Result = res.res
		outcomes[res.idx].Err = res.err

		if res.err != nil {
			r.sink.Error("batch", res.err, diag.Fields{"pair": pairs[res.idx].Name})
			continue
		}
		r.sink.Info("batch", "pair reconstructed", diag.Fields{
			"pair":      pairs[res.idx].Name,
			"completed": completed,
			"total":     len(pairs),
		})
	}

	for i := range outcomes {
		if !processed[i] {
			outcomes[i].Err = fmt.Errorf("pair not started: %w", ctx.Err())
		}
	}
	return outcomes
}

func (r *Runner) reconstruct(ctx context.Context, p Pair, spec models.SidebandSpec) (*holography.PairResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	object, reference := p.Object, p.Reference
	if r.params.Despike != nil {
		cleaned, res, err := despike.Clean(object, *r.params.Despike)
		if err != nil {
			return nil, fmt.Errorf("despike object: %w", err)
		}
		object = cleaned
		r.sink.Debug("batch", "object despiked", diag.Fields{"pair": p.Name, "count": res.Count})

		if reference != nil {
			cleaned, res, err := despike.Clean(reference, *r.params.Despike)
			if err != nil {
				return nil, fmt.Errorf("despike reference: %w", err)
			}
			reference = cleaned
			r.sink.Debug("batch", "reference despiked", diag.Fields{"pair": p.Name, "count": res.Count})
		}
	}

	return r.pair.Reconstruct(ctx, object, reference, &spec, nil)
}
