package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type CallRetentionPolicy struct {
	TTL    time.Duration
	RowCap int
}

type CallRetentionPruner interface {
	Prune(ctx context.Context, policy CallRetentionPolicy) (deleted int, err error)
}

// AsyncCallRecorder moves journal writes off the request path. When the
// buffer is full, or the primary write fails, records go to the fallback.
type AsyncCallRecorder struct {
	primary  CallRecorder
	fallback CallRecorder
	policy   CallRetentionPolicy
	pruner   CallRetentionPruner

	queue chan CallRecord
	now   func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewAsyncCallRecorder(
	primary CallRecorder,
	fallback CallRecorder,
	policy CallRetentionPolicy,
	bufferSize int,
) (*AsyncCallRecorder, error) {
	if primary == nil {
		return nil, fmt.Errorf("core: primary call recorder is required")
	}
	if bufferSize <= 0 {
		bufferSize = 128
	}

	recorder := &AsyncCallRecorder{
		primary:  primary,
		fallback: fallback,
		policy:   policy,
		queue:    make(chan CallRecord, bufferSize),
		now:      utcNow,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	if pruner, ok := primary.(CallRetentionPruner); ok {
		recorder.pruner = pruner
	}

	go recorder.run()
	return recorder, nil
}

func (r *AsyncCallRecorder) Record(ctx context.Context, record CallRecord) error {
	if r == nil || r.primary == nil {
		return fmt.Errorf("core: async call recorder is not configured")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now().UTC()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case r.queue <- record:
		return nil
	default:
		if r.fallback != nil {
			return r.fallback.Record(ctx, record)
		}
		return nil
	}
}

func (r *AsyncCallRecorder) EnforceRetention(ctx context.Context) (int, error) {
	if r == nil {
		return 0, fmt.Errorf("core: async call recorder is not configured")
	}
	if r.pruner == nil {
		return 0, nil
	}
	return r.pruner.Prune(ctx, r.policy)
}

// Close drains nothing; records still queued are dropped.
func (r *AsyncCallRecorder) Close() {
	if r == nil {
		return
	}
	r.stopOnce.Do(func() {
		close(r.stopCh)
		<-r.doneCh
	})
}

func (r *AsyncCallRecorder) run() {
	defer close(r.doneCh)
	for {
		select {
		case <-r.stopCh:
			return
		case record := <-r.queue:
			if err := r.primary.Record(context.Background(), record); err != nil && r.fallback != nil {
				_ = r.fallback.Record(context.Background(), record)
			}
		}
	}
}

var _ CallRecorder = (*AsyncCallRecorder)(nil)
