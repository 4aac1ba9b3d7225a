package command

import (
	"strings"

	"github.com/goliatone/go-soap/core"
)

const (
	TypeInvoke           = "soap.command.invoke"
	TypePoll             = "soap.command.poll"
	TypeEnqueuePoll      = "soap.command.poll.enqueue"
	TypePruneCallJournal = "soap.command.call_journal.prune"
)

type InvokeMessage struct {
	Request core.ActionRequest
}

func (InvokeMessage) Type() string { return TypeInvoke }

func (m InvokeMessage) Validate() error {
	return validateActionRequest(m.Request)
}

// PollMessage carries either an inline Accept func or the name of a
// registered predicate. Accept wins when both are set.
type PollMessage struct {
	Request         core.ActionRequest
	Accept          core.AcceptFunc
	Predicate       string
	PredicateParams map[string]any
	Overrides       core.PollConfig
}

func (PollMessage) Type() string { return TypePoll }

func (m PollMessage) Validate() error {
	if err := validateActionRequest(m.Request); err != nil {
		return err
	}
	if m.Accept == nil && strings.TrimSpace(m.Predicate) == "" {
		return commandValidationError("predicate", "accept func or predicate name is required")
	}
	return commandWrapValidation(m.Overrides.Validate(), "command: invalid poll overrides")
}

type EnqueuePollMessage struct {
	Job core.PollJob
}

func (EnqueuePollMessage) Type() string { return TypeEnqueuePoll }

func (m EnqueuePollMessage) Validate() error {
	if err := validateActionRequest(m.Job.Request); err != nil {
		return err
	}
	if strings.TrimSpace(m.Job.Predicate) == "" {
		return commandValidationError("predicate", "predicate name is required")
	}
	return commandWrapValidation(m.Job.Overrides.Validate(), "command: invalid poll overrides")
}

type PruneCallJournalMessage struct {
	Policy core.CallRetentionPolicy
}

func (PruneCallJournalMessage) Type() string { return TypePruneCallJournal }

func (m PruneCallJournalMessage) Validate() error {
	if m.Policy.TTL < 0 {
		return commandValidationError("ttl", "must be >= 0")
	}
	if m.Policy.RowCap < 0 {
		return commandValidationError("row_cap", "must be >= 0")
	}
	if m.Policy.TTL == 0 && m.Policy.RowCap == 0 {
		return commandInvalidInputError("command: retention policy needs a ttl or a row cap")
	}
	return nil
}

func validateActionRequest(req core.ActionRequest) error {
	if strings.TrimSpace(req.Endpoint) == "" {
		return commandValidationError("endpoint", "endpoint is required")
	}
	if strings.TrimSpace(req.Action) == "" {
		return commandValidationError("action", "action is required")
	}
	return nil
}
