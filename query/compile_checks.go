package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-soap/core"
)

var (
	_ gocmd.Querier[ListCallAttemptsMessage, core.CallAttemptPage] = (*ListCallAttemptsQuery)(nil)
	_ gocmd.Querier[GetCallSummaryMessage, core.CallSummary]       = (*GetCallSummaryQuery)(nil)
	_ gocmd.Querier[ListPredicatesMessage, []string]               = (*ListPredicatesQuery)(nil)

	_ PredicateLister = (*core.PredicateRegistry)(nil)
)
