package pipeline

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Wasabiboy/Knack-Reseller-Dashboard/internal/model"
)

// RowSource supplies the rows visible at the time of the call.
type RowSource interface {
	Snapshot(ctx context.Context) (model.Snapshot, error)
}

// ProgressFunc is called during loading to report progress.
// current is the number of sources read so far, total is the total count.
type ProgressFunc func(current, total int)

// MultiSource concatenates several sources in order. Headers come from the
// first source that has them.
type MultiSource struct {
	Sources  []RowSource
	Progress ProgressFunc
}

// Snapshot reads all sources with a bounded worker pool. The first error,
// in source order, is returned.
func (m MultiSource) Snapshot(ctx context.Context) (model.Snapshot, error) {
	n := len(m.Sources)
	if n == 0 {
		return model.Snapshot{Rows: []model.Row{}}, nil
	}

	numWorkers := min(max(runtime.GOMAXPROCS(0), 1), n)

	work := make(chan int, n)
	snaps := make([]model.Snapshot, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range m.Sources {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				snaps[idx], errs[idx] = m.Sources[idx].Snapshot(ctx)
				done := processed.Add(1)
				if m.Progress != nil {
					m.Progress(int(done), n)
				}
			}
		}()
	}

	wg.Wait()

	out := model.Snapshot{Rows: []model.Row{}}
	for i, snap := range snaps {
		if errs[i] != nil {
			return model.Snapshot{}, errs[i]
		}
		if out.Headers == nil && len(snap.Headers) > 0 {
			out.Headers = snap.Headers
		}
		out.Rows = append(out.Rows, snap.Rows...)
	}
	return out, nil
}
