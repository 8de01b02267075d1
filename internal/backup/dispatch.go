package backup

import (
	"context"

	"github.com/icefetch/icefetch/internal/debug"
	"github.com/icefetch/icefetch/internal/errors"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the dispatcher's parallelism when the caller does not
// choose one.
const DefaultWorkers = 1

// Dispatch runs fn once per batch on a bounded worker group and blocks until
// all batches completed or one failed. The first error returned by fn aborts
// the remaining work and is returned unchanged. Cancelling ctx makes Dispatch
// return promptly with ctx.Err(), it is never replaced by a synthetic error.
// A panic inside fn is surfaced as a fatal error and not retried.
//
// The contract is all-or-nothing: either every batch's work completed, or the
// first detected failure is the outcome. Work already completed by other
// batches is left in place.
func Dispatch(ctx context.Context, batches [][]AssetID, workers uint, fn func(context.Context, []AssetID) error) error {
	if workers == 0 {
		workers = DefaultWorkers
	}

	// track spawned goroutines using wg, create a new context which is
	// cancelled as soon as an error occurs.
	wg, wgCtx := errgroup.WithContext(ctx)
	wg.SetLimit(int(workers))

	debug.Log("dispatching %d batches on %d workers", len(batches), workers)

loop:
	for _, batch := range batches {
		select {
		case <-wgCtx.Done():
			break loop
		default:
		}

		wg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = errors.Fatalf("batch task failed: %v", r)
				}
			}()

			if wgCtx.Err() != nil {
				return wgCtx.Err()
			}
			return fn(wgCtx, batch)
		})
	}

	err := wg.Wait()

	// the caller's cancellation wins over whatever the tasks returned while
	// shutting down
	if ctx.Err() != nil {
		debug.Log("dispatch cancelled: %v", ctx.Err())
		return ctx.Err()
	}
	return err
}
