package command

import (
	"context"
	"errors"
	"testing"
	"time"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-soap/core"
)

type stubInvoker struct {
	invokeFn func(ctx context.Context, req core.ActionRequest) (core.Node, error)
	pollFn   func(ctx context.Context, req core.ActionRequest, accept core.AcceptFunc, overrides core.PollConfig) (core.PollResult, error)
}

func (s stubInvoker) Invoke(ctx context.Context, req core.ActionRequest) (core.Node, error) {
	if s.invokeFn == nil {
		return core.Node{}, nil
	}
	return s.invokeFn(ctx, req)
}

func (s stubInvoker) Poll(
	ctx context.Context,
	req core.ActionRequest,
	accept core.AcceptFunc,
	overrides core.PollConfig,
) (core.PollResult, error) {
	if s.pollFn == nil {
		return core.PollResult{}, nil
	}
	return s.pollFn(ctx, req, accept, overrides)
}

type stubScheduler struct {
	job      core.PollJob
	enqueuer core.JobEnqueuer
	err      error
}

func (s *stubScheduler) Enqueue(_ context.Context, enqueuer core.JobEnqueuer, job core.PollJob) error {
	s.job = job
	s.enqueuer = enqueuer
	return s.err
}

type stubEnqueuer struct{}

func (stubEnqueuer) Enqueue(context.Context, *core.JobExecutionMessage) error { return nil }

type stubPruner struct {
	policy  core.CallRetentionPolicy
	deleted int
}

func (s *stubPruner) Prune(_ context.Context, policy core.CallRetentionPolicy) (int, error) {
	s.policy = policy
	return s.deleted, nil
}

func statusRequest() core.ActionRequest {
	return core.ActionRequest{
		Endpoint:    "https://soap.example.com/service",
		ServiceName: "Orders",
		Action:      "GetStatus",
		Arguments:   map[string]any{"id": "42"},
	}
}

func statusNode(status string) core.Node {
	return core.Node{"GetStatusResponse": core.Node{"status": core.Node{core.TextKey: status}}}
}

func TestInvokeCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	called := false
	invoker := stubInvoker{
		invokeFn: func(_ context.Context, req core.ActionRequest) (core.Node, error) {
			called = true
			if req.Action != "GetStatus" {
				t.Fatalf("expected action GetStatus, got %q", req.Action)
			}
			return statusNode("done"), nil
		},
	}

	collector := gocmd.NewResult[core.Node]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := NewInvokeCommand(invoker).Execute(ctx, InvokeMessage{Request: statusRequest()}); err != nil {
		t.Fatalf("execute invoke: %v", err)
	}
	if !called {
		t.Fatalf("expected invoker call")
	}
	node, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if got := node.TextAt("GetStatusResponse", "status"); got != "done" {
		t.Fatalf("unexpected stored node status %q", got)
	}
}

func TestInvokeCommand_PropagatesInvokerError(t *testing.T) {
	sentinel := errors.New("transport down")
	invoker := stubInvoker{
		invokeFn: func(context.Context, core.ActionRequest) (core.Node, error) {
			return nil, sentinel
		},
	}
	err := NewInvokeCommand(invoker).Execute(context.Background(), InvokeMessage{Request: statusRequest()})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected invoker error, got %v", err)
	}
}

func TestPollCommand_UsesInlineAccept(t *testing.T) {
	accepted := false
	invoker := stubInvoker{
		pollFn: func(_ context.Context, _ core.ActionRequest, accept core.AcceptFunc, overrides core.PollConfig) (core.PollResult, error) {
			if overrides.MaxAttempts != 3 {
				t.Fatalf("expected overrides to pass through, got %#v", overrides)
			}
			ok, _ := accept(statusNode("done"))
			accepted = ok
			return core.PollResult{Node: statusNode("done"), CallID: "call_1", Attempts: 2}, nil
		},
	}

	collector := gocmd.NewResult[core.PollResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	err := NewPollCommand(invoker, nil).Execute(ctx, PollMessage{
		Request:   statusRequest(),
		Accept:    core.AcceptText([]string{"GetStatusResponse", "status"}, "done"),
		Overrides: core.PollConfig{PollSettings: core.PollSettings{MaxAttempts: 3}},
	})
	if err != nil {
		t.Fatalf("execute poll: %v", err)
	}
	if !accepted {
		t.Fatalf("expected inline accept func to be used")
	}
	result, ok := collector.Load()
	if !ok || result.CallID != "call_1" || result.Attempts != 2 {
		t.Fatalf("unexpected stored poll result: %#v", result)
	}
}

func TestPollCommand_BuildsNamedPredicate(t *testing.T) {
	var got bool
	invoker := stubInvoker{
		pollFn: func(_ context.Context, _ core.ActionRequest, accept core.AcceptFunc, _ core.PollConfig) (core.PollResult, error) {
			got, _ = accept(statusNode("ready"))
			return core.PollResult{}, nil
		},
	}
	err := NewPollCommand(invoker, core.NewDefaultPredicateRegistry()).Execute(context.Background(), PollMessage{
		Request:   statusRequest(),
		Predicate: core.PredicateTextEquals,
		PredicateParams: map[string]any{
			"path":  "GetStatusResponse.status",
			"value": "ready",
		},
	})
	if err != nil {
		t.Fatalf("execute poll: %v", err)
	}
	if !got {
		t.Fatalf("expected registry predicate to accept ready status")
	}
}

func TestPollCommand_UnknownPredicateIsBadInput(t *testing.T) {
	called := false
	invoker := stubInvoker{
		pollFn: func(context.Context, core.ActionRequest, core.AcceptFunc, core.PollConfig) (core.PollResult, error) {
			called = true
			return core.PollResult{}, nil
		},
	}
	err := NewPollCommand(invoker, nil).Execute(context.Background(), PollMessage{
		Request:   statusRequest(),
		Predicate: "missing",
	})
	if !core.IsBadInput(err) {
		t.Fatalf("expected bad input error, got %v", err)
	}
	if called {
		t.Fatalf("expected poll to be skipped")
	}
}

func TestEnqueuePollCommand_DelegatesToScheduler(t *testing.T) {
	scheduler := &stubScheduler{}
	enqueuer := stubEnqueuer{}
	job := core.PollJob{
		Request:         statusRequest(),
		Predicate:       core.PredicatePresent,
		PredicateParams: map[string]any{"path": "GetStatusResponse.status"},
		Overrides:       core.PollSettings{InitialWait: time.Second},
	}
	if err := NewEnqueuePollCommand(scheduler, enqueuer).Execute(context.Background(), EnqueuePollMessage{Job: job}); err != nil {
		t.Fatalf("execute enqueue: %v", err)
	}
	if scheduler.job.Predicate != core.PredicatePresent || scheduler.job.Overrides.InitialWait != time.Second {
		t.Fatalf("unexpected scheduled job: %#v", scheduler.job)
	}
	if scheduler.enqueuer == nil {
		t.Fatalf("expected enqueuer to be forwarded")
	}

	if err := NewEnqueuePollCommand(scheduler, nil).Execute(context.Background(), EnqueuePollMessage{Job: job}); err == nil {
		t.Fatalf("expected missing enqueuer error")
	}
}

func TestPruneCallJournalCommand_StoresDeletedCount(t *testing.T) {
	pruner := &stubPruner{deleted: 4}
	collector := gocmd.NewResult[int]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := NewPruneCallJournalCommand(pruner).Execute(ctx, PruneCallJournalMessage{
		Policy: core.CallRetentionPolicy{TTL: time.Hour, RowCap: 100},
	})
	if err != nil {
		t.Fatalf("execute prune: %v", err)
	}
	if pruner.policy.TTL != time.Hour || pruner.policy.RowCap != 100 {
		t.Fatalf("unexpected prune policy: %#v", pruner.policy)
	}
	deleted, ok := collector.Load()
	if !ok || deleted != 4 {
		t.Fatalf("expected deleted count 4, got %d", deleted)
	}
}

func TestCommandMessageValidation(t *testing.T) {
	accept := core.AcceptPresent("GetStatusResponse")
	tests := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{name: "invoke valid", msg: InvokeMessage{Request: statusRequest()}},
		{name: "invoke missing endpoint", msg: InvokeMessage{Request: core.ActionRequest{Action: "GetStatus"}}, wantErr: true},
		{name: "invoke missing action", msg: InvokeMessage{Request: core.ActionRequest{Endpoint: "https://x"}}, wantErr: true},
		{name: "poll inline accept", msg: PollMessage{Request: statusRequest(), Accept: accept}},
		{name: "poll named predicate", msg: PollMessage{Request: statusRequest(), Predicate: core.PredicatePresent}},
		{name: "poll missing predicate", msg: PollMessage{Request: statusRequest()}, wantErr: true},
		{
			name: "poll negative wait",
			msg: PollMessage{
				Request:   statusRequest(),
				Accept:    accept,
				Overrides: core.PollConfig{PollSettings: core.PollSettings{InitialWait: -time.Second}},
			},
			wantErr: true,
		},
		{name: "enqueue valid", msg: EnqueuePollMessage{Job: core.PollJob{Request: statusRequest(), Predicate: core.PredicatePresent}}},
		{name: "enqueue missing predicate", msg: EnqueuePollMessage{Job: core.PollJob{Request: statusRequest()}}, wantErr: true},
		{name: "prune ttl", msg: PruneCallJournalMessage{Policy: core.CallRetentionPolicy{TTL: time.Hour}}},
		{name: "prune empty policy", msg: PruneCallJournalMessage{}, wantErr: true},
		{name: "prune negative cap", msg: PruneCallJournalMessage{Policy: core.CallRetentionPolicy{RowCap: -1}}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected valid message, got %v", err)
			}
		})
	}
}
