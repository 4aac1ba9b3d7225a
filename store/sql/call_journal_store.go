package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-soap/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const callAttemptsTable = "soap_call_attempts"

// CallJournalStore persists call attempts in soap_call_attempts.
type CallJournalStore struct {
	db   *bun.DB
	repo repository.Repository[*callAttemptRecord]
}

func NewCallJournalStore(db *bun.DB) (*CallJournalStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*callAttemptRecord](db, callAttemptHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid call attempt repository wiring: %w", err)
		}
	}
	return &CallJournalStore{db: db, repo: repo}, nil
}

func (s *CallJournalStore) Record(ctx context.Context, entry core.CallRecord) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: call journal store is not configured")
	}
	callID := strings.TrimSpace(entry.CallID)
	if callID == "" {
		return fmt.Errorf("sqlstore: call id is required")
	}
	id := strings.TrimSpace(entry.ID)
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := entry.CreatedAt.UTC()
	if entry.CreatedAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	record := &callAttemptRecord{
		ID:          id,
		CallID:      callID,
		Endpoint:    strings.TrimSpace(entry.Endpoint),
		ServiceName: strings.TrimSpace(entry.ServiceName),
		Action:      strings.TrimSpace(entry.Action),
		Attempt:     entry.Attempt,
		Stage:       strings.TrimSpace(entry.Stage),
		Status:      strings.TrimSpace(string(entry.Status)),
		ErrorCode:   strings.TrimSpace(entry.ErrorCode),
		Error:       entry.Error,
		DurationMS:  entry.DurationMS,
		Metadata:    copyAnyMap(entry.Metadata),
		CreatedAt:   createdAt,
	}
	if record.Status == "" {
		record.Status = string(core.CallStatusSucceeded)
	}

	_, err := s.repo.Create(ctx, record)
	return err
}

func (s *CallJournalStore) List(ctx context.Context, filter core.CallAttemptFilter) (core.CallAttemptPage, error) {
	if s == nil || s.repo == nil {
		return core.CallAttemptPage{}, fmt.Errorf("sqlstore: call journal store is not configured")
	}
	filter = core.NormalizeCallAttemptFilter(filter)
	offset := (filter.Page - 1) * filter.PerPage

	selectors := []repository.SelectCriteria{
		repository.OrderBy("created_at DESC"),
		repository.SelectPaginate(filter.PerPage, offset),
	}
	if filter.CallID != "" {
		selectors = append(selectors, repository.SelectBy("call_id", "=", filter.CallID))
	}
	if filter.ServiceName != "" {
		selectors = append(selectors, repository.SelectBy("service_name", "=", filter.ServiceName))
	}
	if filter.Action != "" {
		selectors = append(selectors, repository.SelectBy("action", "=", filter.Action))
	}
	if filter.Status != "" {
		selectors = append(selectors, repository.SelectBy("status", "=", string(filter.Status)))
	}
	if filter.From != nil {
		selectors = append(selectors, repository.SelectByTimetz("created_at", ">=", filter.From.UTC()))
	}
	if filter.To != nil {
		selectors = append(selectors, repository.SelectByTimetz("created_at", "<=", filter.To.UTC()))
	}

	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return core.CallAttemptPage{}, err
	}
	items := make([]core.CallRecord, 0, len(records))
	for _, record := range records {
		items = append(items, callAttemptRecordToDomain(record))
	}
	return core.CallAttemptPage{
		Items:   items,
		Page:    filter.Page,
		PerPage: filter.PerPage,
		Total:   total,
		HasNext: offset+len(items) < total,
	}, nil
}

func (s *CallJournalStore) Summary(ctx context.Context, callID string) (core.CallSummary, error) {
	if s == nil || s.db == nil {
		return core.CallSummary{}, fmt.Errorf("sqlstore: call journal store is not configured")
	}
	callID = strings.TrimSpace(callID)
	if callID == "" {
		return core.CallSummary{}, fmt.Errorf("sqlstore: call id is required")
	}

	var records []*callAttemptRecord
	if err := s.db.NewSelect().
		Model(&records).
		Where("call_id = ?", callID).
		Order("created_at ASC", "attempt ASC").
		Scan(ctx); err != nil {
		return core.CallSummary{}, err
	}
	if len(records) == 0 {
		return core.CallSummary{}, core.NewCallNotFoundError(callID)
	}
	domain := make([]core.CallRecord, 0, len(records))
	for _, record := range records {
		domain = append(domain, callAttemptRecordToDomain(record))
	}
	return core.SummarizeCallRecords(callID, domain), nil
}

// Prune drops attempts older than policy.TTL, then trims the oldest rows
// beyond policy.RowCap.
func (s *CallJournalStore) Prune(ctx context.Context, policy core.CallRetentionPolicy) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: call journal store is not configured")
	}
	deleted := 0
	now := time.Now().UTC()

	if policy.TTL > 0 {
		cutoff := now.Add(-policy.TTL)
		res, err := s.db.NewDelete().
			Model((*callAttemptRecord)(nil)).
			Where("created_at < ?", cutoff).
			Exec(ctx)
		if err != nil {
			return deleted, err
		}
		affected, _ := res.RowsAffected()
		deleted += int(affected)
	}

	if policy.RowCap > 0 {
		total, err := s.db.NewSelect().Model((*callAttemptRecord)(nil)).Count(ctx)
		if err != nil {
			return deleted, err
		}
		excess := total - policy.RowCap
		if excess > 0 {
			res, err := s.db.NewRaw(
				"DELETE FROM "+callAttemptsTable+" WHERE id IN (SELECT id FROM "+callAttemptsTable+" ORDER BY created_at ASC LIMIT ?)",
				excess,
			).Exec(ctx)
			if err != nil {
				return deleted, err
			}
			affected, _ := res.RowsAffected()
			deleted += int(affected)
		}
	}

	return deleted, nil
}

func callAttemptRecordToDomain(record *callAttemptRecord) core.CallRecord {
	if record == nil {
		return core.CallRecord{}
	}
	return core.CallRecord{
		ID:          record.ID,
		CallID:      record.CallID,
		Endpoint:    record.Endpoint,
		ServiceName: record.ServiceName,
		Action:      record.Action,
		Attempt:     record.Attempt,
		Stage:       record.Stage,
		Status:      core.CallStatus(record.Status),
		ErrorCode:   record.ErrorCode,
		Error:       record.Error,
		DurationMS:  record.DurationMS,
		Metadata:    copyAnyMap(record.Metadata),
		CreatedAt:   record.CreatedAt.UTC(),
	}
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
