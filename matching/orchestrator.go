package matching

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/RyanBlaney/melodia/logging"
	"github.com/RyanBlaney/melodia/melody"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc is called after every finished pair with the running and total pair counts.
// It may be called from several goroutines at once.
type ProgressFunc func(done, total int)

// Orchestrator runs a Matcher over a corpus, comparing every segment only with the melodies
// of its own tune family.
type Orchestrator struct {
	matcher  Matcher
	workers  int
	failFast bool
	progress ProgressFunc
	logger   logging.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers bounds the number of pairs compared at once. Values below 1 select
// NumCPU-1, at least 2.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		o.workers = n
	}
}

// WithFailFast cancels the run at the first pair error instead of collecting them all.
func WithFailFast(failFast bool) Option {
	return func(o *Orchestrator) {
		o.failFast = failFast
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) {
		o.progress = fn
	}
}

// WithLogger replaces the orchestrator logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates an orchestrator for m.
func NewOrchestrator(m Matcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		matcher: m,
		logger: logging.WithFields(logging.Fields{
			"component": "orchestrator",
			"matcher":   m.Kind(),
		}),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.workers < 1 {
		o.workers = max(runtime.NumCPU()-1, 2)
	}
	return o
}

// Run compares every segment with every melody of its tune family. Results come back sorted
// by family, query, segment and melody. Pair failures are joined into the returned error
// next to the results of the pairs that succeeded; with fail-fast the first failure stops
// the run and is returned alone.
func (o *Orchestrator) Run(ctx context.Context, melodies []melody.Melody, segments []melody.Segment) ([]MatchResult, error) {
	logger := o.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Run",
		"workers":  o.workers,
	})

	families := melody.PartitionByFamily(melodies, segments)
	total := 0
	for _, f := range families {
		total += f.Pairs()
	}
	logger.Info("Starting run", logging.Fields{
		"families": len(families),
		"pairs":    total,
	})

	var (
		mu      sync.Mutex
		results = make([]MatchResult, 0, total)
		errs    []error
		done    atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

schedule:
	for _, family := range families {
		if family.Pairs() == 0 {
			logger.Debug("Family has nothing to compare", logging.Fields{
				"tune_family": family.ID,
				"melodies":    len(family.Melodies),
				"segments":    len(family.Segments),
			})
			continue
		}
		logger.Info("Matching family", logging.Fields{
			"tune_family": family.ID,
			"melodies":    len(family.Melodies),
			"segments":    len(family.Segments),
		})

		for _, seg := range family.Segments {
			for _, mel := range family.Melodies {
				if gctx.Err() != nil {
					break schedule
				}

				g.Go(func() error {
					if gctx.Err() != nil {
						return nil
					}
					res, err := o.matcher.Match(seg, mel)
					if o.progress != nil {
						o.progress(int(done.Add(1)), total)
					}

					if err != nil {
						pe := &PairError{
							TuneFamilyID:   family.ID,
							QueryFilename:  seg.Filename,
							QuerySegmentID: seg.SegmentID,
							MatchFilename:  mel.Filename,
							Err:            err,
						}
						logger.Error(err, "Pair failed", logging.Fields{
							"tune_family": family.ID,
							"query":       seg.Filename,
							"segment":     seg.SegmentID,
							"melody":      mel.Filename,
						})
						if o.failFast {
							return pe
						}
						mu.Lock()
						errs = append(errs, pe)
						mu.Unlock()
						return nil
					}

					if res != nil {
						mu.Lock()
						results = append(results, *res)
						mu.Unlock()
					}
					return nil
				})
			}
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run cancelled: %w", err)
	}

	slices.SortFunc(results, compareResults)
	logger.Info("Run finished", logging.Fields{
		"results": len(results),
		"failed":  len(errs),
	})
	return results, errors.Join(errs...)
}

func compareResults(a, b MatchResult) int {
	return cmp.Or(
		cmp.Compare(a.TuneFamilyID, b.TuneFamilyID),
		cmp.Compare(a.QueryFilename, b.QueryFilename),
		cmp.Compare(a.QuerySegmentID, b.QuerySegmentID),
		cmp.Compare(a.MatchFilename, b.MatchFilename),
	)
}
