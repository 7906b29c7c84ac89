package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/controls"
)

// BenchResult is the timing of repeated runs of one check.
type BenchResult struct {
	Name  string        `json:"name"`
	Runs  int           `json:"runs"`
	Total time.Duration `json:"total_ns"`
	Mean  time.Duration `json:"mean_ns"`
	Min   time.Duration `json:"min_ns"`
	Max   time.Duration `json:"max_ns"`
}

// Benchmark runs fn runs times in sequence and reports the wall-clock time.
// It stops at the first error.
func Benchmark(ctx context.Context, name string, runs int, fn func(context.Context) error) (BenchResult, error) {
	if runs < 1 {
		return BenchResult{}, errors.New("runs must be at least 1")
	}
	res := BenchResult{Name: name}
	for i := 0; i < runs; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		start := time.Now()
		if err := fn(ctx); err != nil {
			return res, fmt.Errorf("%s run %d: %w", name, i+1, err)
		}
		d := time.Since(start)
		res.Runs++
		res.Total += d
		if res.Min == 0 || d < res.Min {
			res.Min = d
		}
		if d > res.Max {
			res.Max = d
		}
	}
	res.Mean = res.Total / time.Duration(res.Runs)
	return res, nil
}

// BenchSection times a full audit of one section: collection, evaluation,
// and report assembly.
func (e *CISEngine) BenchSection(ctx context.Context, opts AuditOptions, section controls.Section, runs int) (BenchResult, error) {
	opts.Sections = []controls.Section{section}
	return Benchmark(ctx, string(section), runs, func(ctx context.Context) error {
		_, err := e.RunAudit(ctx, opts)
		return err
	})
}
