package ingest

import (
	"context"

	"github.com/okian/kata/internal/adapters/stream"
	"github.com/okian/kata/internal/domain/model"
	"github.com/okian/kata/internal/domain/session"
	"github.com/okian/kata/pkg/logger"
	"github.com/okian/kata/pkg/metrics"
)

// Sink receives every result the runner produces, e.g. to store the latest
// score and push it to live clients.
type Sink func(model.ScoreResult)

// Runner drains the packet queue and drives the scoring session. It is the
// session's only caller on the UDP path, which keeps the pipeline's
// one-logical-stream-of-calls contract without extra locking.
//
// Pairing policy: the latest reference frame is retained; every performer
// frame is scored against it. Performer frames arriving before any
// reference frame are skipped — there is nothing yet to compare against.
type Runner struct {
	queue  Queue
	ctrl   *session.Controller
	sink   Sink
	logger logger.Logger

	lastRef *model.RawFrame

	done chan struct{}
}

// RunnerOption applies a configuration option to the Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets a custom logger for the runner.
func WithRunnerLogger(l logger.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithSink sets the result sink. A nil sink discards results.
func WithSink(s Sink) RunnerOption {
	return func(r *Runner) {
		if s != nil {
			r.sink = s
		}
	}
}

// NewRunner creates a scoring runner over the given queue and session.
func NewRunner(q Queue, ctrl *session.Controller, opts ...RunnerOption) *Runner {
	r := &Runner{
		queue:  q,
		ctrl:   ctrl,
		sink:   func(model.ScoreResult) {},
		logger: logger.Get().Named("runner"),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run consumes the queue until ctx is canceled or the queue closes.
func (r *Runner) Run(ctx context.Context) {
	defer close(r.done)

	for it := range r.queue.Dequeue(ctx) {
		r.process(ctx, it)
	}
}

// Done is closed when the runner has fully stopped.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) process(ctx context.Context, it Item) {
	switch it.Stream {
	case stream.Reference:
		if it.Frame.WantsReset() {
			r.sink(r.ctrl.ScoreFrames(model.RawFrame{}, it.Frame))
			r.lastRef = nil
			return
		}
		frame := it.Frame
		r.lastRef = &frame

	case stream.Performer:
		if it.Frame.WantsReset() {
			r.sink(r.ctrl.ScoreFrames(it.Frame, model.RawFrame{}))
			r.lastRef = nil
			return
		}
		if r.lastRef == nil {
			r.logger.Debug(ctx, "no reference frame yet, skipping performer frame")
			return
		}
		result := r.ctrl.ScoreFrames(it.Frame, *r.lastRef)
		metrics.UpdateDTWWindowFill(r.ctrl.BufferLen())
		r.sink(result)

	default:
		r.logger.Warn(ctx, "item with unknown stream", logger.String("stream", it.Stream))
	}
}
