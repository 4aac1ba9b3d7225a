package query

import (
	"context"
	"strings"

	"github.com/goliatone/go-soap/core"
)

type PredicateLister interface {
	Names() []string
}

type ListCallAttemptsQuery struct {
	reader core.CallJournalReader
}

func NewListCallAttemptsQuery(reader core.CallJournalReader) *ListCallAttemptsQuery {
	return &ListCallAttemptsQuery{reader: reader}
}

func (q *ListCallAttemptsQuery) Query(ctx context.Context, msg ListCallAttemptsMessage) (core.CallAttemptPage, error) {
	if q == nil || q.reader == nil {
		return core.CallAttemptPage{}, queryDependencyError("query: call journal reader is required")
	}
	return q.reader.List(ctx, core.NormalizeCallAttemptFilter(msg.Filter))
}

type GetCallSummaryQuery struct {
	reader core.CallJournalReader
}

func NewGetCallSummaryQuery(reader core.CallJournalReader) *GetCallSummaryQuery {
	return &GetCallSummaryQuery{reader: reader}
}

func (q *GetCallSummaryQuery) Query(ctx context.Context, msg GetCallSummaryMessage) (core.CallSummary, error) {
	if q == nil || q.reader == nil {
		return core.CallSummary{}, queryDependencyError("query: call journal reader is required")
	}
	return q.reader.Summary(ctx, strings.TrimSpace(msg.CallID))
}

type ListPredicatesQuery struct {
	lister PredicateLister
}

func NewListPredicatesQuery(lister PredicateLister) *ListPredicatesQuery {
	return &ListPredicatesQuery{lister: lister}
}

func (q *ListPredicatesQuery) Query(context.Context, ListPredicatesMessage) ([]string, error) {
	if q == nil || q.lister == nil {
		return nil, queryDependencyError("query: predicate registry is required")
	}
	return q.lister.Names(), nil
}
