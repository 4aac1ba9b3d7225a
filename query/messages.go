package query

import (
	"strings"

	"github.com/goliatone/go-soap/core"
)

const (
	TypeListCallAttempts = "soap.query.call_attempts.list"
	TypeGetCallSummary   = "soap.query.call_summary.get"
	TypeListPredicates   = "soap.query.predicates.list"
)

type ListCallAttemptsMessage struct {
	Filter core.CallAttemptFilter
}

func (ListCallAttemptsMessage) Type() string { return TypeListCallAttempts }

func (m ListCallAttemptsMessage) Validate() error {
	if m.Filter.Page < 0 {
		return queryValidationError("page", "must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return queryValidationError("per_page", "must be >= 0")
	}
	if m.Filter.From != nil && m.Filter.To != nil && m.Filter.To.Before(*m.Filter.From) {
		return queryInvalidInputError("query: filter to must not be before from")
	}
	return nil
}

type GetCallSummaryMessage struct {
	CallID string
}

func (GetCallSummaryMessage) Type() string { return TypeGetCallSummary }

func (m GetCallSummaryMessage) Validate() error {
	if strings.TrimSpace(m.CallID) == "" {
		return queryValidationError("call_id", "call id is required")
	}
	return nil
}

type ListPredicatesMessage struct{}

func (ListPredicatesMessage) Type() string { return TypeListPredicates }
