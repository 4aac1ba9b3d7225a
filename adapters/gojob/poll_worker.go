package gojob

import (
	"context"
	"fmt"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-soap/core"
)

const defaultPollWorkerIdle = time.Second

type PollWorkerOption func(*PollWorker)

// WithWorkerHook adds a hook; every hook sees every event in order.
func WithWorkerHook(hook core.JobWorkerHook) PollWorkerOption {
	return func(w *PollWorker) {
		if hook != nil {
			w.hooks = append(w.hooks, hook)
		}
	}
}

// WithJobHook adds a go-job worker hook.
func WithJobHook(hook worker.Hook) PollWorkerOption {
	return func(w *PollWorker) {
		if hook != nil {
			w.hooks = append(w.hooks, NewJobHookAdapter(hook))
		}
	}
}

func WithWorkerLogger(provider glog.LoggerProvider, logger glog.Logger) PollWorkerOption {
	return func(w *PollWorker) {
		_, w.logger = JobLoggers("soap.poll_worker", provider, logger)
	}
}

func WithIdleDelay(delay time.Duration) PollWorkerOption {
	return func(w *PollWorker) {
		if delay > 0 {
			w.idle = delay
		}
	}
}

// PollWorker drains a job queue through core.PollJobRunner, one delivery at
// a time. The runner settles every delivery; the worker reports outcomes to
// the hooks and the logger.
type PollWorker struct {
	runner   *core.PollJobRunner
	dequeuer core.JobDequeuer
	hooks    []core.JobWorkerHook
	logger   job.Logger
	idle     time.Duration
	now      func() time.Time
}

func NewPollWorker(runner *core.PollJobRunner, dequeuer core.JobDequeuer, opts ...PollWorkerOption) (*PollWorker, error) {
	if runner == nil {
		return nil, fmt.Errorf("gojob: poll job runner is required")
	}
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is required")
	}
	w := &PollWorker{
		runner:   runner,
		dequeuer: dequeuer,
		idle:     defaultPollWorkerIdle,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	if w.logger == nil {
		_, w.logger = JobLoggers("soap.poll_worker", nil, nil)
	}
	return w, nil
}

// Step handles at most one delivery. It reports false when the queue was
// empty.
func (w *PollWorker) Step(ctx context.Context) (bool, error) {
	if w == nil {
		return false, fmt.Errorf("gojob: poll worker is nil")
	}
	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if delivery == nil {
		return false, nil
	}

	startedAt := w.now()
	event := core.JobWorkerEvent{Message: delivery.Message(), Attempt: 1, StartedAt: startedAt}
	if counted, ok := delivery.(interface{ Attempt() int }); ok && counted.Attempt() > 0 {
		event.Attempt = counted.Attempt()
	}
	for _, hook := range w.hooks {
		hook.OnStart(ctx, event)
	}

	handleErr := w.runner.Handle(ctx, delivery)
	event.Duration = w.now().Sub(startedAt)
	event.Err = handleErr

	jobID := ""
	if event.Message != nil {
		jobID = event.Message.JobID
	}
	switch {
	case handleErr == nil:
		w.logger.Info("poll job succeeded", "job_id", jobID, "duration_ms", event.Duration.Milliseconds())
		for _, hook := range w.hooks {
			hook.OnSuccess(ctx, event)
		}
	case core.IsTransportError(handleErr):
		w.logger.Info("poll job requeued", "job_id", jobID, "error", handleErr.Error())
		for _, hook := range w.hooks {
			hook.OnRetry(ctx, event)
		}
	default:
		w.logger.Info("poll job failed", "job_id", jobID, "error", handleErr.Error())
		for _, hook := range w.hooks {
			hook.OnFailure(ctx, event)
		}
	}
	return true, handleErr
}

// Run steps until ctx is done. Empty polls and dequeue errors wait for the
// idle delay; job failures are already settled and do not stop the loop.
func (w *PollWorker) Run(ctx context.Context) error {
	if w == nil {
		return fmt.Errorf("gojob: poll worker is nil")
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		handled, err := w.Step(ctx)
		if handled {
			continue
		}
		if err != nil {
			w.logger.Info("poll job dequeue failed", "error", err.Error())
		}
		timer := time.NewTimer(w.idle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
