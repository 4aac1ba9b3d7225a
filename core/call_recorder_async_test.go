package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAsyncCallRecorder_NonBlockingFallbackWhenQueueIsFull(t *testing.T) {
	primary := &blockingCallRecorder{block: make(chan struct{})}
	fallback := &capturingCallRecorder{}
	recorder, err := NewAsyncCallRecorder(primary, fallback, CallRetentionPolicy{}, 1)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	defer func() {
		close(primary.block)
		recorder.Close()
	}()

	// the worker holds at most one record and the queue one more.
	start := time.Now()
	for _, id := range []string{"a", "b", "c"} {
		if err := recorder.Record(context.Background(), CallRecord{ID: id, CallID: "call_1"}); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatalf("expected non-blocking fallback write")
	}
	if fallback.count() == 0 {
		t.Fatalf("expected fallback recorder to capture saturated write")
	}
}

func TestAsyncCallRecorder_FallbackOnPrimaryError(t *testing.T) {
	fallback := &capturingCallRecorder{}
	recorder, err := NewAsyncCallRecorder(errorCallRecorder{}, fallback, CallRetentionPolicy{}, 4)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	defer recorder.Close()

	if err := recorder.Record(context.Background(), CallRecord{CallID: "call_1", Status: CallStatusFailed}); err != nil {
		t.Fatalf("record: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if fallback.count() == 1 {
			if fallback.lastRecord().CreatedAt.IsZero() {
				t.Fatalf("expected created_at to be stamped before queueing")
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected fallback write after primary failure")
}

func TestAsyncCallRecorder_EnforceRetention(t *testing.T) {
	pruner := &stubPruner{deleted: 7}
	recorder, err := NewAsyncCallRecorder(pruner, nil, CallRetentionPolicy{
		TTL:    24 * time.Hour,
		RowCap: 100,
	}, 4)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	defer recorder.Close()

	deleted, err := recorder.EnforceRetention(context.Background())
	if err != nil {
		t.Fatalf("enforce retention: %v", err)
	}
	if deleted != 7 {
		t.Fatalf("expected deleted=7, got %d", deleted)
	}
	if pruner.lastPolicy.RowCap != 100 || pruner.lastPolicy.TTL != 24*time.Hour {
		t.Fatalf("expected policy propagation")
	}
}

func TestAsyncCallRecorder_RequiresPrimary(t *testing.T) {
	if _, err := NewAsyncCallRecorder(nil, nil, CallRetentionPolicy{}, 1); err == nil {
		t.Fatalf("expected error for missing primary recorder")
	}
}

type blockingCallRecorder struct {
	block chan struct{}
}

func (s *blockingCallRecorder) Record(context.Context, CallRecord) error {
	<-s.block
	return nil
}

type errorCallRecorder struct{}

func (errorCallRecorder) Record(context.Context, CallRecord) error {
	return errors.New("primary write failed")
}

type capturingCallRecorder struct {
	mu      sync.Mutex
	records []CallRecord
}

func (s *capturingCallRecorder) Record(_ context.Context, record CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *capturingCallRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *capturingCallRecorder) lastRecord() CallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		return CallRecord{}
	}
	return s.records[len(s.records)-1]
}

type stubPruner struct {
	deleted    int
	lastPolicy CallRetentionPolicy
}

func (s *stubPruner) Record(context.Context, CallRecord) error {
	return nil
}

func (s *stubPruner) Prune(_ context.Context, policy CallRetentionPolicy) (int, error) {
	s.lastPolicy = policy
	return s.deleted, nil
}
