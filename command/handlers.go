package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-soap/core"
)

// PollJobScheduler queues a poll job for a worker. core.PollJobRunner
// satisfies it.
type PollJobScheduler interface {
	Enqueue(ctx context.Context, enqueuer core.JobEnqueuer, job core.PollJob) error
}

type InvokeCommand struct {
	invoker core.Invoker
}

func NewInvokeCommand(invoker core.Invoker) *InvokeCommand {
	return &InvokeCommand{invoker: invoker}
}

func (c *InvokeCommand) Execute(ctx context.Context, msg InvokeMessage) error {
	if c == nil || c.invoker == nil {
		return commandDependencyError("command: invoker is required")
	}
	out, err := c.invoker.Invoke(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type PollCommand struct {
	invoker    core.Invoker
	predicates *core.PredicateRegistry
}

// NewPollCommand falls back to the default predicate registry when
// predicates is nil.
func NewPollCommand(invoker core.Invoker, predicates *core.PredicateRegistry) *PollCommand {
	if predicates == nil {
		predicates = core.NewDefaultPredicateRegistry()
	}
	return &PollCommand{invoker: invoker, predicates: predicates}
}

func (c *PollCommand) Execute(ctx context.Context, msg PollMessage) error {
	if c == nil || c.invoker == nil {
		return commandDependencyError("command: invoker is required")
	}
	accept := msg.Accept
	if accept == nil {
		built, err := c.predicates.Build(msg.Predicate, msg.PredicateParams)
		if err != nil {
			return commandWrapValidation(err, "command: invalid poll predicate")
		}
		accept = built
	}
	out, err := c.invoker.Poll(ctx, msg.Request, accept, msg.Overrides)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type EnqueuePollCommand struct {
	scheduler PollJobScheduler
	enqueuer  core.JobEnqueuer
}

func NewEnqueuePollCommand(scheduler PollJobScheduler, enqueuer core.JobEnqueuer) *EnqueuePollCommand {
	return &EnqueuePollCommand{scheduler: scheduler, enqueuer: enqueuer}
}

func (c *EnqueuePollCommand) Execute(ctx context.Context, msg EnqueuePollMessage) error {
	if c == nil || c.scheduler == nil {
		return commandDependencyError("command: poll job scheduler is required")
	}
	if c.enqueuer == nil {
		return commandDependencyError("command: job enqueuer is required")
	}
	return c.scheduler.Enqueue(ctx, c.enqueuer, msg.Job)
}

type PruneCallJournalCommand struct {
	pruner core.CallRetentionPruner
}

func NewPruneCallJournalCommand(pruner core.CallRetentionPruner) *PruneCallJournalCommand {
	return &PruneCallJournalCommand{pruner: pruner}
}

// Execute stores the number of deleted attempts as an int result.
func (c *PruneCallJournalCommand) Execute(ctx context.Context, msg PruneCallJournalMessage) error {
	if c == nil || c.pruner == nil {
		return commandDependencyError("command: call journal pruner is required")
	}
	deleted, err := c.pruner.Prune(ctx, msg.Policy)
	if err != nil {
		return err
	}
	storeResult(ctx, deleted)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
