package worker

import (
	"context"

	"github.com/andresmejia3/facecheck/internal/types"
	"golang.org/x/sync/errgroup"
)

// Func handles one task, folding its outcome into the engine's own accumulator.
type Func[A any] func(ctx context.Context, task types.SampleTask, acc *A) error

// Run spawns size engines that pull tasks from a shared channel and returns one
// accumulator per engine. Accumulators are never shared, so engines need no locking;
// the caller reduces them once every engine has returned.
//
// The first error cancels the remaining work and is returned with no partials.
func Run[A any](ctx context.Context, size int, samples []types.Sample, fn Func[A]) ([]A, error) {
	if size < 1 {
		size = 1
	}
	if size > len(samples) && len(samples) > 0 {
		size = len(samples)
	}

	partials := make([]A, size)
	taskChan := make(chan types.SampleTask, size)

	g, gctx := errgroup.WithContext(ctx)

	// Producer
	g.Go(func() error {
		defer close(taskChan)
		for i, s := range samples {
			select {
			case taskChan <- types.SampleTask{Index: i, Sample: s}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	// Engine pool
	for id := 0; id < size; id++ {
		acc := &partials[id]
		g.Go(func() error {
			for task := range taskChan {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := fn(gctx, task, acc); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return partials, nil
}
