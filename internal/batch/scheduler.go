package batch

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/domain-intel/internal/model"
)

// Scheduler launches supervised background batch runs.
type Scheduler struct {
	runner *Runner
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler around runner.
func NewScheduler(runner *Runner) *Scheduler {
	return &Scheduler{runner: runner}
}

// Run is a handle to one in-flight batch. Summary is valid once Done is
// closed.
type Run struct {
	cancel  context.CancelFunc
	done    chan struct{}
	summary model.BatchSummary
}

// Done is closed when the run has finished.
func (r *Run) Done() <-chan struct{} { return r.done }

// Cancel stops the run after the current item.
func (r *Run) Cancel() { r.cancel() }

// Summary returns the final accounting. Only call after Done is closed.
func (r *Run) Summary() model.BatchSummary { return r.summary }

// Launch starts a batch in a supervised goroutine. A panic escaping the
// runner is reported to the session instead of crashing the process.
func (s *Scheduler) Launch(ctx context.Context, emails []string, notify Notifier) *Run {
	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{cancel: cancel, done: make(chan struct{})}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(run.done)
		defer cancel()
		defer func() {
			if p := recover(); p != nil {
				zap.L().Error("batch run panicked", zap.Any("panic", p))
				notify.Notify("Batch processing failed unexpectedly. Please try again.", nil)
				notify.UpdateStatus(model.ProcessingStatus{
					Phase:   model.PhaseError,
					Message: "Batch processing failed",
				})
			}
		}()
		run.summary = s.runner.Run(runCtx, emails, notify)
	}()
	return run
}

// Wait blocks until every launched run has finished. Used on shutdown.
func (s *Scheduler) Wait() { s.wg.Wait() }
