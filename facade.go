package soap

import (
	"fmt"

	"github.com/goliatone/go-command/runner"
	"github.com/goliatone/go-soap/adapters/gocommand"
	soapcommand "github.com/goliatone/go-soap/command"
	"github.com/goliatone/go-soap/core"
	soapquery "github.com/goliatone/go-soap/query"
)

type Commands struct {
	Invoke           *soapcommand.InvokeCommand
	Poll             *soapcommand.PollCommand
	EnqueuePoll      *soapcommand.EnqueuePollCommand
	PruneCallJournal *soapcommand.PruneCallJournalCommand
}

type Queries struct {
	ListCallAttempts *soapquery.ListCallAttemptsQuery
	GetCallSummary   *soapquery.GetCallSummaryQuery
	ListPredicates   *soapquery.ListPredicatesQuery
}

// Facade groups the command and query handlers for one invoker. Handlers
// whose collaborator is missing are left nil.
type Facade struct {
	invoker  core.Invoker
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	journal    core.CallJournalReader
	pruner     core.CallRetentionPruner
	predicates *core.PredicateRegistry
	scheduler  soapcommand.PollJobScheduler
	enqueuer   core.JobEnqueuer
}

func WithCallJournal(reader core.CallJournalReader) FacadeOption {
	return func(options *facadeOptions) {
		options.journal = reader
	}
}

func WithCallPruner(pruner core.CallRetentionPruner) FacadeOption {
	return func(options *facadeOptions) {
		options.pruner = pruner
	}
}

func WithPredicates(predicates *core.PredicateRegistry) FacadeOption {
	return func(options *facadeOptions) {
		options.predicates = predicates
	}
}

// WithPollJobScheduler enables the enqueue-poll command. The scheduler is
// usually a *core.PollJobRunner and the enqueuer a gojob.EnqueuerAdapter.
func WithPollJobScheduler(scheduler soapcommand.PollJobScheduler, enqueuer core.JobEnqueuer) FacadeOption {
	return func(options *facadeOptions) {
		options.scheduler = scheduler
		options.enqueuer = enqueuer
	}
}

func NewFacade(invoker core.Invoker, opts ...FacadeOption) (*Facade, error) {
	if invoker == nil {
		return nil, fmt.Errorf("soap: invoker is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	journal := cfg.journal
	if journal == nil {
		journal = resolveCallJournal(invoker)
	}
	pruner := cfg.pruner
	if pruner == nil {
		pruner, _ = journal.(core.CallRetentionPruner)
	}
	predicates := cfg.predicates
	if predicates == nil {
		predicates = core.NewDefaultPredicateRegistry()
	}

	facade := &Facade{invoker: invoker}
	facade.commands = Commands{
		Invoke: soapcommand.NewInvokeCommand(invoker),
		Poll:   soapcommand.NewPollCommand(invoker, predicates),
	}
	if cfg.scheduler != nil && cfg.enqueuer != nil {
		facade.commands.EnqueuePoll = soapcommand.NewEnqueuePollCommand(cfg.scheduler, cfg.enqueuer)
	}
	if pruner != nil {
		facade.commands.PruneCallJournal = soapcommand.NewPruneCallJournalCommand(pruner)
	}

	facade.queries = Queries{
		ListPredicates: soapquery.NewListPredicatesQuery(predicates),
	}
	if journal != nil {
		facade.queries.ListCallAttempts = soapquery.NewListCallAttemptsQuery(journal)
		facade.queries.GetCallSummary = soapquery.NewGetCallSummaryQuery(journal)
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Invoker() core.Invoker {
	if f == nil {
		return nil
	}
	return f.invoker
}

// Register adds every wired handler to the go-command registry and subscribes
// it to the global dispatcher.
func (f *Facade) Register(adapter *gocommand.RegistryAdapter, runnerOpts ...runner.Option) (gocommand.Subscriptions, error) {
	if f == nil {
		return nil, fmt.Errorf("soap: facade is nil")
	}
	return gocommand.RegisterHandlers(adapter, gocommand.Handlers{
		Invoke:           f.commands.Invoke,
		Poll:             f.commands.Poll,
		EnqueuePoll:      f.commands.EnqueuePoll,
		PruneCallJournal: f.commands.PruneCallJournal,
		ListCallAttempts: f.queries.ListCallAttempts,
		GetCallSummary:   f.queries.GetCallSummary,
		ListPredicates:   f.queries.ListPredicates,
	}, runnerOpts...)
}

func resolveCallJournal(invoker core.Invoker) core.CallJournalReader {
	if reader, ok := invoker.(core.CallJournalReader); ok {
		return reader
	}
	provider, ok := invoker.(interface {
		Dependencies() core.ClientDependencies
	})
	if !ok {
		return nil
	}
	reader, ok := provider.Dependencies().CallRecorder.(core.CallJournalReader)
	if !ok {
		return nil
	}
	return reader
}
