package sqlstore

import "github.com/goliatone/go-soap/core"

var (
	_ core.CallJournal         = (*CallJournalStore)(nil)
	_ core.CallRetentionPruner = (*CallJournalStore)(nil)
	_ core.CallJournal         = (*CachedCallJournal)(nil)
	_ core.CallRetentionPruner = (*CachedCallJournal)(nil)
)
