package query

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-soap/core"
)

func TestListCallAttemptsQuery_NormalizesAndDelegates(t *testing.T) {
	journal := core.NewMemoryCallJournal()
	ctx := context.Background()
	for attempt := 1; attempt <= 3; attempt++ {
		if err := journal.Record(ctx, core.CallRecord{
			CallID:    "call_1",
			Action:    "GetStatus",
			Attempt:   attempt,
			Status:    core.CallStatusRejected,
			CreatedAt: time.Date(2026, 1, 1, 0, 0, attempt, 0, time.UTC),
		}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	page, err := NewListCallAttemptsQuery(journal).Query(ctx, ListCallAttemptsMessage{
		Filter: core.CallAttemptFilter{CallID: " call_1 ", PerPage: 2},
	})
	if err != nil {
		t.Fatalf("list call attempts: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 || !page.HasNext {
		t.Fatalf("unexpected page: %#v", page)
	}
	if page.Page != 1 {
		t.Fatalf("expected default page 1, got %d", page.Page)
	}
}

func TestGetCallSummaryQuery_Delegates(t *testing.T) {
	journal := core.NewMemoryCallJournal()
	ctx := context.Background()
	_ = journal.Record(ctx, core.CallRecord{CallID: "call_2", Action: "Submit", Attempt: 1, Status: core.CallStatusAccepted})

	summary, err := NewGetCallSummaryQuery(journal).Query(ctx, GetCallSummaryMessage{CallID: " call_2 "})
	if err != nil {
		t.Fatalf("get call summary: %v", err)
	}
	if summary.CallID != "call_2" || summary.LastStatus != core.CallStatusAccepted {
		t.Fatalf("unexpected summary: %#v", summary)
	}

	if _, err := NewGetCallSummaryQuery(journal).Query(ctx, GetCallSummaryMessage{CallID: "missing"}); !core.IsCallNotFound(err) {
		t.Fatalf("expected call not found, got %v", err)
	}
}

func TestListPredicatesQuery_ReturnsRegisteredNames(t *testing.T) {
	names, err := NewListPredicatesQuery(core.NewDefaultPredicateRegistry()).Query(context.Background(), ListPredicatesMessage{})
	if err != nil {
		t.Fatalf("list predicates: %v", err)
	}
	if len(names) != 2 || names[0] != core.PredicatePresent || names[1] != core.PredicateTextEquals {
		t.Fatalf("unexpected predicate names: %#v", names)
	}
}

func TestQueryMessageValidation(t *testing.T) {
	from := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)
	tests := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{name: "list valid", msg: ListCallAttemptsMessage{Filter: core.CallAttemptFilter{Page: 1, PerPage: 20}}},
		{name: "list negative page", msg: ListCallAttemptsMessage{Filter: core.CallAttemptFilter{Page: -1}}, wantErr: true},
		{name: "list negative per page", msg: ListCallAttemptsMessage{Filter: core.CallAttemptFilter{PerPage: -1}}, wantErr: true},
		{name: "list inverted window", msg: ListCallAttemptsMessage{Filter: core.CallAttemptFilter{From: &from, To: &to}}, wantErr: true},
		{name: "summary valid", msg: GetCallSummaryMessage{CallID: "call_1"}},
		{name: "summary missing id", msg: GetCallSummaryMessage{}, wantErr: true},
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
