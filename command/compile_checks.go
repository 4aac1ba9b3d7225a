package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-soap/core"
)

var (
	_ gocmd.Commander[InvokeMessage]           = (*InvokeCommand)(nil)
	_ gocmd.Commander[PollMessage]             = (*PollCommand)(nil)
	_ gocmd.Commander[EnqueuePollMessage]      = (*EnqueuePollCommand)(nil)
	_ gocmd.Commander[PruneCallJournalMessage] = (*PruneCallJournalCommand)(nil)

	_ PollJobScheduler = (*core.PollJobRunner)(nil)
)
