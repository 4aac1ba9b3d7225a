package gojob

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	"github.com/goliatone/go-soap/core"
)

// JobIDPoll routes queued poll jobs to core.PollJobRunner.
const JobIDPoll = core.JobIDPoll

// RetryPolicy bounds how often a poll job is requeued.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt caps the delay and dead-letters once MaxAttempts is reached.
func (p RetryPolicy) NormalizeAttempt(opts core.JobNackOptions, attempt int) core.JobNackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

func ToExecutionMessage(msg *core.JobExecutionMessage) *job.ExecutionMessage {
	if msg == nil {
		return nil
	}
	return &job.ExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		ScriptPath:     strings.TrimSpace(msg.ScriptPath),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    job.DeduplicationPolicy(strings.TrimSpace(msg.DedupPolicy)),
	}
}

func FromExecutionMessage(msg *job.ExecutionMessage) *core.JobExecutionMessage {
	if msg == nil {
		return nil
	}
	return &core.JobExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		ScriptPath:     strings.TrimSpace(msg.ScriptPath),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    strings.TrimSpace(string(msg.DedupPolicy)),
	}
}

func ToNackOptions(opts core.JobNackOptions) queue.NackOptions {
	return queue.NackOptions{
		Delay:      opts.Delay,
		Requeue:    opts.Requeue,
		DeadLetter: opts.DeadLetter,
		Reason:     opts.Reason,
	}
}

func FromNackOptions(opts queue.NackOptions) core.JobNackOptions {
	return core.JobNackOptions{
		Delay:      opts.Delay,
		Requeue:    opts.Requeue,
		DeadLetter: opts.DeadLetter,
		Reason:     opts.Reason,
	}
}

type EnqueuerAdapter struct {
	enqueuer queue.Enqueuer
}

func NewEnqueuerAdapter(enqueuer queue.Enqueuer) *EnqueuerAdapter {
	return &EnqueuerAdapter{enqueuer: enqueuer}
}

func (a *EnqueuerAdapter) Enqueue(ctx context.Context, msg *core.JobExecutionMessage) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if msg == nil {
		return fmt.Errorf("gojob: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) == "" {
		return fmt.Errorf("gojob: job id is required")
	}
	return a.enqueuer.Enqueue(ctx, ToExecutionMessage(msg))
}

// DeliveryAdapter settles one go-job delivery. Attempt is the number of
// times a message with the same idempotency key was dequeued by the owning
// DequeuerAdapter, starting at 1.
type DeliveryAdapter struct {
	delivery queue.Delivery
	policy   RetryPolicy
	attempt  int
	settled  func()
}

func NewDeliveryAdapter(delivery queue.Delivery, policy RetryPolicy) *DeliveryAdapter {
	return &DeliveryAdapter{delivery: delivery, policy: policy, attempt: 1}
}

func (d *DeliveryAdapter) Message() *core.JobExecutionMessage {
	if d == nil || d.delivery == nil {
		return nil
	}
	return FromExecutionMessage(d.delivery.Message())
}

func (d *DeliveryAdapter) Attempt() int {
	if d == nil {
		return 0
	}
	return d.attempt
}

func (d *DeliveryAdapter) Ack(ctx context.Context) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	if err := d.delivery.Ack(ctx); err != nil {
		return err
	}
	d.finish()
	return nil
}

// Nack applies the retry policy for the tracked attempt.
func (d *DeliveryAdapter) Nack(ctx context.Context, opts core.JobNackOptions) error {
	if d == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	return d.NackForAttempt(ctx, opts, d.attempt)
}

func (d *DeliveryAdapter) NackForAttempt(ctx context.Context, opts core.JobNackOptions, attempt int) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	normalized := d.policy.NormalizeAttempt(opts, attempt)
	if err := d.delivery.Nack(ctx, ToNackOptions(normalized)); err != nil {
		return err
	}
	if !normalized.Requeue {
		d.finish()
	}
	return nil
}

func (d *DeliveryAdapter) finish() {
	if d.settled != nil {
		d.settled()
	}
}

type DequeuerAdapter struct {
	dequeuer queue.Dequeuer
	policy   RetryPolicy

	mu       sync.Mutex
	attempts map[string]int
}

func NewDequeuerAdapter(dequeuer queue.Dequeuer, policy RetryPolicy) *DequeuerAdapter {
	return &DequeuerAdapter{dequeuer: dequeuer, policy: policy, attempts: map[string]int{}}
}

// Dequeue wraps the next delivery. Messages without an idempotency key are
// always reported as attempt 1.
func (a *DequeuerAdapter) Dequeue(ctx context.Context) (core.JobDelivery, error) {
	if a == nil || a.dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := a.dequeuer.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	if delivery == nil {
		return nil, nil
	}
	adapted := NewDeliveryAdapter(delivery, a.policy)
	msg := delivery.Message()
	if msg == nil {
		return adapted, nil
	}
	key := strings.TrimSpace(msg.IdempotencyKey)
	if key == "" {
		return adapted, nil
	}
	a.mu.Lock()
	if a.attempts == nil {
		a.attempts = map[string]int{}
	}
	a.attempts[key]++
	adapted.attempt = a.attempts[key]
	a.mu.Unlock()
	adapted.settled = func() {
		a.mu.Lock()
		delete(a.attempts, key)
		a.mu.Unlock()
	}
	return adapted, nil
}

// JobHookAdapter lets a go-job worker.Hook observe PollWorker events.
type JobHookAdapter struct {
	hook worker.Hook
}

func NewJobHookAdapter(hook worker.Hook) *JobHookAdapter {
	return &JobHookAdapter{hook: hook}
}

func (a *JobHookAdapter) OnStart(ctx context.Context, event core.JobWorkerEvent) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnStart(ctx, toWorkerEvent(event))
}

func (a *JobHookAdapter) OnSuccess(ctx context.Context, event core.JobWorkerEvent) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnSuccess(ctx, toWorkerEvent(event))
}

func (a *JobHookAdapter) OnFailure(ctx context.Context, event core.JobWorkerEvent) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnFailure(ctx, toWorkerEvent(event))
}

func (a *JobHookAdapter) OnRetry(ctx context.Context, event core.JobWorkerEvent) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnRetry(ctx, toWorkerEvent(event))
}

func toWorkerEvent(event core.JobWorkerEvent) worker.Event {
	return worker.Event{
		Message:   ToExecutionMessage(event.Message),
		Attempt:   event.Attempt,
		Delay:     event.Delay,
		Err:       event.Err,
		StartedAt: event.StartedAt,
		Duration:  event.Duration,
	}
}

var _ core.JobWorkerHook = (*JobHookAdapter)(nil)

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var (
	_ core.JobEnqueuer = (*EnqueuerAdapter)(nil)
	_ core.JobDelivery = (*DeliveryAdapter)(nil)
	_ core.JobDequeuer = (*DequeuerAdapter)(nil)
)
