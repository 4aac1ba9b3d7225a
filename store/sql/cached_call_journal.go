package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-soap/core"
)

const callSummaryCacheKeyPrefix = "go-soap::call_summary::v1"

// CachedCallJournal caches Summary reads. Record invalidates the summary of
// the call it writes to; List always reads through.
type CachedCallJournal struct {
	base  core.CallJournal
	cache repositorycache.CacheService
}

func NewCachedCallJournal(base core.CallJournal, cacheService repositorycache.CacheService) (*CachedCallJournal, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base call journal is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: call summary cache service is required")
	}
	return &CachedCallJournal{base: base, cache: cacheService}, nil
}

// CallSummaryCacheKey returns go-soap::call_summary::v1::<call_id> with the
// id URL-path escaped.
func CallSummaryCacheKey(callID string) (string, error) {
	callID = strings.TrimSpace(callID)
	if callID == "" {
		return "", fmt.Errorf("sqlstore: call id is required")
	}
	return callSummaryCacheKeyPrefix + "::" + url.PathEscape(callID), nil
}

func (s *CachedCallJournal) Record(ctx context.Context, record core.CallRecord) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached call journal is not configured")
	}
	if err := s.base.Record(ctx, record); err != nil {
		return err
	}
	cacheKey, err := CallSummaryCacheKey(record.CallID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func (s *CachedCallJournal) List(ctx context.Context, filter core.CallAttemptFilter) (core.CallAttemptPage, error) {
	if s == nil || s.base == nil {
		return core.CallAttemptPage{}, fmt.Errorf("sqlstore: cached call journal is not configured")
	}
	return s.base.List(ctx, filter)
}

func (s *CachedCallJournal) Summary(ctx context.Context, callID string) (core.CallSummary, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.CallSummary{}, fmt.Errorf("sqlstore: cached call journal is not configured")
	}
	callID = strings.TrimSpace(callID)
	cacheKey, err := CallSummaryCacheKey(callID)
	if err != nil {
		return core.CallSummary{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.CallSummary, error) {
		return s.base.Summary(ctx, callID)
	})
}

// Prune delegates to the base journal when it supports retention.
func (s *CachedCallJournal) Prune(ctx context.Context, policy core.CallRetentionPolicy) (int, error) {
	if s == nil || s.base == nil {
		return 0, fmt.Errorf("sqlstore: cached call journal is not configured")
	}
	pruner, ok := s.base.(core.CallRetentionPruner)
	if !ok {
		return 0, nil
	}
	return pruner.Prune(ctx, policy)
}
