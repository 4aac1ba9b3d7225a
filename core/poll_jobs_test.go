package core

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type memoryJobQueue struct {
	mu       sync.Mutex
	messages []*JobExecutionMessage
}

func (q *memoryJobQueue) Enqueue(_ context.Context, msg *JobExecutionMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, msg)
	return nil
}

func (q *memoryJobQueue) Dequeue(context.Context) (JobDelivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.messages) == 0 {
		return nil, nil
	}
	next := q.messages[0]
	q.messages = q.messages[1:]
	return &recordingDelivery{msg: next}, nil
}

type recordingDelivery struct {
	msg    *JobExecutionMessage
	acked  bool
	nacked bool
	nack   JobNackOptions
}

func (d *recordingDelivery) Message() *JobExecutionMessage { return d.msg }

func (d *recordingDelivery) Ack(context.Context) error {
	d.acked = true
	return nil
}

func (d *recordingDelivery) Nack(_ context.Context, opts JobNackOptions) error {
	d.nacked = true
	d.nack = opts
	return nil
}

func statusPollJob() PollJob {
	return PollJob{
		Request:         statusRequest(),
		Predicate:       PredicateTextEquals,
		PredicateParams: map[string]any{"path": "GetStatusResponse.status", "values": []any{"done", "failed"}},
		Overrides:       PollSettings{MaxAttempts: 4, InitialWait: 2 * time.Second},
		IdempotencyKey:  "job-42",
	}
}

func TestPollJobMessage_SurvivesJSONRoundTrip(t *testing.T) {
	job := statusPollJob()
	job.Request.Headers = map[string]string{"X-Tenant": "acme"}
	msg, err := NewPollJobMessage(job)
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	if msg.JobID != JobIDPoll || msg.IdempotencyKey != "job-42" {
		t.Fatalf("unexpected message envelope: %#v", msg)
	}

	payload, err := json.Marshal(msg.Parameters)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded := map[string]any{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	parsed, err := ParsePollJobMessage(&JobExecutionMessage{JobID: JobIDPoll, Parameters: decoded, IdempotencyKey: msg.IdempotencyKey})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Request.Endpoint != job.Request.Endpoint || parsed.Request.Action != "GetStatus" {
		t.Fatalf("unexpected request: %#v", parsed.Request)
	}
	if parsed.Request.Headers["X-Tenant"] != "acme" {
		t.Fatalf("expected headers, got %#v", parsed.Request.Headers)
	}
	if parsed.Overrides.MaxAttempts != 4 || parsed.Overrides.InitialWait != 2*time.Second {
		t.Fatalf("unexpected overrides: %#v", parsed.Overrides)
	}
	args, ok := parsed.Request.Arguments.(map[string]any)
	if !ok || args["jobId"] != "42" {
		t.Fatalf("unexpected arguments: %#v", parsed.Request.Arguments)
	}
}

func TestParsePollJobMessage_RejectsInvalidMessages(t *testing.T) {
	if _, err := ParsePollJobMessage(nil); err == nil {
		t.Fatalf("expected nil message error")
	}
	if _, err := ParsePollJobMessage(&JobExecutionMessage{JobID: "other"}); err == nil {
		t.Fatalf("expected unsupported job id error")
	}
	_, err := ParsePollJobMessage(&JobExecutionMessage{JobID: JobIDPoll, Parameters: map[string]any{
		"endpoint":  "https://soap.example.com",
		"action":    "GetStatus",
		"predicate": "",
	}})
	if err == nil {
		t.Fatalf("expected missing predicate error")
	}
}

func TestPredicateRegistry_DefaultPredicates(t *testing.T) {
	registry := NewDefaultPredicateRegistry()
	if names := registry.Names(); len(names) != 2 || names[0] != PredicatePresent || names[1] != PredicateTextEquals {
		t.Fatalf("unexpected predicate names: %v", registry.Names())
	}

	node := Node{"GetStatusResponse": Node{
		"status": Node{TextKey: "failed"},
		"detail": Node{"code": Node{TextKey: "E1"}},
	}}
	accept, err := registry.Build(PredicateTextEquals, map[string]any{"path": []string{"GetStatusResponse", "status"}, "value": "failed"})
	if err != nil {
		t.Fatalf("build text_equals: %v", err)
	}
	if ok, _ := accept(node); !ok {
		t.Fatalf("expected text_equals to accept")
	}

	present, err := registry.Build("PRESENT", map[string]any{"path": "GetStatusResponse.detail"})
	if err != nil {
		t.Fatalf("build present: %v", err)
	}
	if ok, _ := present(node); !ok {
		t.Fatalf("expected present to accept")
	}

	if _, err := registry.Build(PredicateTextEquals, map[string]any{"path": "a"}); err == nil {
		t.Fatalf("expected missing values error")
	}
	if _, err := registry.Build("unknown", nil); err == nil {
		t.Fatalf("expected unknown predicate error")
	}
	if err := registry.Register(PredicatePresent, func(map[string]any) (AcceptFunc, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestPollJobRunner_AcksAcceptedPoll(t *testing.T) {
	transport := newScriptedTransport(
		scriptedResponse{body: statusEnvelope("running")},
		scriptedResponse{body: statusEnvelope("done")},
	)
	client, _ := newTestClient(t, transport)
	runner, err := NewPollJobRunner(client, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	var gotResult PollResult
	runner.OnResult(func(_ context.Context, _ PollJob, result PollResult, _ error) {
		gotResult = result
	})

	queue := &memoryJobQueue{}
	if err := runner.Enqueue(context.Background(), queue, statusPollJob()); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	delivery, err := queue.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if err := runner.Handle(context.Background(), delivery); err != nil {
		t.Fatalf("handle: %v", err)
	}
	recorded := delivery.(*recordingDelivery)
	if !recorded.acked || recorded.nacked {
		t.Fatalf("expected ack, got %#v", recorded)
	}
	if gotResult.Attempts != 2 {
		t.Fatalf("expected result callback with 2 attempts, got %d", gotResult.Attempts)
	}
}

func TestPollJobRunner_RequeuesTransportFailures(t *testing.T) {
	transport := newScriptedTransport(scriptedResponse{err: errors.New("connection refused")})
	client, _ := newTestClient(t, transport)
	runner, err := NewPollJobRunner(client, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	runner.WithRetryDelay(time.Minute)

	msg, err := NewPollJobMessage(statusPollJob())
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	delivery := &recordingDelivery{msg: msg}
	if err := runner.Handle(context.Background(), delivery); !IsTransportError(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !delivery.nack.Requeue || delivery.nack.DeadLetter || delivery.nack.Delay != time.Minute {
		t.Fatalf("expected delayed requeue, got %#v", delivery.nack)
	}
}

func TestPollJobRunner_DeadLettersExhaustedPolls(t *testing.T) {
	transport := newScriptedTransport(scriptedResponse{body: statusEnvelope("running")})
	client, _ := newTestClient(t, transport)
	runner, err := NewPollJobRunner(client, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	queue := &memoryJobQueue{}
	if err := runner.Enqueue(context.Background(), queue, statusPollJob()); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	handled, err := runner.RunOnce(context.Background(), queue)
	if !handled {
		t.Fatalf("expected a delivery to be handled")
	}
	if !IsPollExhausted(err) {
		t.Fatalf("expected poll exhausted, got %v", err)
	}
	if transport.calls() != 4 {
		t.Fatalf("expected job overrides to cap attempts at 4, got %d", transport.calls())
	}

	handled, err = runner.RunOnce(context.Background(), queue)
	if handled || err != nil {
		t.Fatalf("expected empty queue, got handled=%v err=%v", handled, err)
	}
}

func TestPollJobRunner_DeadLettersUnknownPredicate(t *testing.T) {
	client, _ := newTestClient(t, newScriptedTransport(scriptedResponse{body: statusEnvelope("done")}))
	runner, err := NewPollJobRunner(client, NewPredicateRegistry())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	msg, err := NewPollJobMessage(statusPollJob())
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	delivery := &recordingDelivery{msg: msg}
	if err := runner.Handle(context.Background(), delivery); err == nil {
		t.Fatalf("expected unknown predicate error")
	}
	if !delivery.nack.DeadLetter {
		t.Fatalf("expected dead letter, got %#v", delivery.nack)
	}
}
