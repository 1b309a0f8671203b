package sparql

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunAll runs every job on its own executor and returns the outcomes in job order.
// At most limit jobs are in flight at once; limit <= 0 means no bound.
// Jobs that have not started when ctx is done fail with ctx's error.
// Executors share nothing, so a failure in one job never affects another.
func RunAll(ctx context.Context, jobs []QueryJob, newExecutor func() *Executor, limit int) []Outcome {
	outcomes := make([]Outcome, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, job := range jobs {
		g.Go(func() error {
			// Jobs still queued when ctx ends are never dispatched.
			if err := gctx.Err(); err != nil {
				outcomes[i] = Outcome{Err: err}
				return nil
			}
			o, err := newExecutor().Run(gctx, job)
			if err != nil {
				o = Outcome{Err: err}
			}
			outcomes[i] = o
			return nil
		})
	}

	// Jobs report failures through their outcomes, never through the group.
	_ = g.Wait()
	return outcomes
}
