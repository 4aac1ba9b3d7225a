package gocommand

import (
	"fmt"

	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	soapcommand "github.com/goliatone/go-soap/command"
	soapquery "github.com/goliatone/go-soap/query"
)

// Handlers lists the soap handlers to expose through go-command. Nil entries
// are skipped.
type Handlers struct {
	Invoke           *soapcommand.InvokeCommand
	Poll             *soapcommand.PollCommand
	EnqueuePoll      *soapcommand.EnqueuePollCommand
	PruneCallJournal *soapcommand.PruneCallJournalCommand
	ListCallAttempts *soapquery.ListCallAttemptsQuery
	GetCallSummary   *soapquery.GetCallSummaryQuery
	ListPredicates   *soapquery.ListPredicatesQuery
}

type Subscriptions []commanddispatcher.Subscription

func (s Subscriptions) Unsubscribe() {
	for _, subscription := range s {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
}

// RegisterHandlers registers and subscribes every non-nil handler. On error
// the subscriptions made so far are released.
func RegisterHandlers(adapter *RegistryAdapter, handlers Handlers, runnerOpts ...runner.Option) (Subscriptions, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	subs := Subscriptions{}
	track := func(sub commanddispatcher.Subscription, err error) error {
		if err != nil {
			subs.Unsubscribe()
			return err
		}
		subs = append(subs, sub)
		return nil
	}

	if handlers.Invoke != nil {
		if err := track(RegisterAndSubscribe(adapter, handlers.Invoke, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.Poll != nil {
		if err := track(RegisterAndSubscribe(adapter, handlers.Poll, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.EnqueuePoll != nil {
		if err := track(RegisterAndSubscribe(adapter, handlers.EnqueuePoll, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.PruneCallJournal != nil {
		if err := track(RegisterAndSubscribe(adapter, handlers.PruneCallJournal, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.ListCallAttempts != nil {
		if err := track(RegisterAndSubscribeQuery(adapter, handlers.ListCallAttempts, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.GetCallSummary != nil {
		if err := track(RegisterAndSubscribeQuery(adapter, handlers.GetCallSummary, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.ListPredicates != nil {
		if err := track(RegisterAndSubscribeQuery(adapter, handlers.ListPredicates, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	return subs, nil
}
