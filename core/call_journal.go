package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type CallStatus string

const (
	CallStatusSucceeded CallStatus = "succeeded"
	CallStatusFailed    CallStatus = "failed"
	CallStatusAccepted  CallStatus = "accepted"
	CallStatusRejected  CallStatus = "rejected"
)

// CallRecord is one journaled attempt. Every attempt of a poll shares the
// same CallID.
type CallRecord struct {
	ID          string
	CallID      string
	Endpoint    string
	ServiceName string
	Action      string
	Attempt     int
	Stage       string
	Status      CallStatus
	ErrorCode   string
	Error       string
	DurationMS  int64
	Metadata    map[string]any
	CreatedAt   time.Time
}

type CallAttemptFilter struct {
	CallID      string
	ServiceName string
	Action      string
	Status      CallStatus
	From        *time.Time
	To          *time.Time
	Page        int
	PerPage     int
}

type CallAttemptPage struct {
	Items   []CallRecord
	Page    int
	PerPage int
	Total   int
	HasNext bool
}

type CallSummary struct {
	CallID      string
	ServiceName string
	Action      string
	Endpoint    string
	Attempts    int
	LastStatus  CallStatus
	LastStage   string
	LastError   string
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

const (
	defaultCallAttemptPerPage = 50
	maxCallAttemptPerPage     = 500
)

// NormalizeCallAttemptFilter trims the filter and applies paging defaults.
func NormalizeCallAttemptFilter(filter CallAttemptFilter) CallAttemptFilter {
	filter.CallID = strings.TrimSpace(filter.CallID)
	filter.ServiceName = strings.TrimSpace(filter.ServiceName)
	filter.Action = strings.TrimSpace(filter.Action)
	filter.Status = CallStatus(strings.TrimSpace(strings.ToLower(string(filter.Status))))
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = defaultCallAttemptPerPage
	}
	if filter.PerPage > maxCallAttemptPerPage {
		filter.PerPage = maxCallAttemptPerPage
	}
	return filter
}

// SummarizeCallRecords folds the attempts of one call, oldest first.
func SummarizeCallRecords(callID string, records []CallRecord) CallSummary {
	summary := CallSummary{CallID: callID}
	for _, record := range records {
		if record.Attempt > summary.Attempts {
			summary.Attempts = record.Attempt
		}
		if summary.FirstSeenAt.IsZero() || record.CreatedAt.Before(summary.FirstSeenAt) {
			summary.FirstSeenAt = record.CreatedAt
		}
		if !record.CreatedAt.Before(summary.LastSeenAt) {
			summary.LastSeenAt = record.CreatedAt
			summary.LastStatus = record.Status
			summary.LastStage = record.Stage
			summary.LastError = record.Error
		}
		summary.ServiceName = record.ServiceName
		summary.Action = record.Action
		summary.Endpoint = record.Endpoint
	}
	return summary
}

type MemoryCallJournal struct {
	mu      sync.RWMutex
	records []CallRecord
	next    int
}

func NewMemoryCallJournal() *MemoryCallJournal {
	return &MemoryCallJournal{}
}

func (j *MemoryCallJournal) Record(_ context.Context, record CallRecord) error {
	if j == nil {
		return fmt.Errorf("core: call journal is nil")
	}
	if strings.TrimSpace(record.CallID) == "" {
		return fmt.Errorf("core: call id is required")
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.next++
	if strings.TrimSpace(record.ID) == "" {
		record.ID = fmt.Sprintf("attempt_%d", j.next)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = utcNow()
	}
	record.Metadata = cloneFields(record.Metadata)
	j.records = append(j.records, record)
	return nil
}

func (j *MemoryCallJournal) List(_ context.Context, filter CallAttemptFilter) (CallAttemptPage, error) {
	if j == nil {
		return CallAttemptPage{}, fmt.Errorf("core: call journal is nil")
	}
	filter = NormalizeCallAttemptFilter(filter)

	j.mu.RLock()
	matched := make([]CallRecord, 0, len(j.records))
	for _, record := range j.records {
		if matchesCallFilter(record, filter) {
			matched = append(matched, record)
		}
	}
	j.mu.RUnlock()

	sort.SliceStable(matched, func(a, b int) bool {
		return matched[a].CreatedAt.After(matched[b].CreatedAt)
	})

	total := len(matched)
	start := (filter.Page - 1) * filter.PerPage
	if start > total {
		start = total
	}
	end := start + filter.PerPage
	if end > total {
		end = total
	}
	items := make([]CallRecord, 0, end-start)
	for _, record := range matched[start:end] {
		record.Metadata = cloneFields(record.Metadata)
		items = append(items, record)
	}
	return CallAttemptPage{
		Items:   items,
		Page:    filter.Page,
		PerPage: filter.PerPage,
		Total:   total,
		HasNext: end < total,
	}, nil
}

func (j *MemoryCallJournal) Summary(_ context.Context, callID string) (CallSummary, error) {
	if j == nil {
		return CallSummary{}, fmt.Errorf("core: call journal is nil")
	}
	callID = strings.TrimSpace(callID)
	if callID == "" {
		return CallSummary{}, fmt.Errorf("core: call id is required")
	}

	j.mu.RLock()
	records := make([]CallRecord, 0)
	for _, record := range j.records {
		if record.CallID == callID {
			records = append(records, record)
		}
	}
	j.mu.RUnlock()

	if len(records) == 0 {
		return CallSummary{}, NewCallNotFoundError(callID)
	}
	return SummarizeCallRecords(callID, records), nil
}

// NewCallNotFoundError is returned by journal readers for an unknown call id.
func NewCallNotFoundError(callID string) error {
	return newSOAPError(
		fmt.Sprintf("core: call %q not found", callID),
		goerrors.CategoryNotFound,
		ErrorCallNotFound,
		map[string]any{"call_id": callID},
	)
}

func matchesCallFilter(record CallRecord, filter CallAttemptFilter) bool {
	if filter.CallID != "" && record.CallID != filter.CallID {
		return false
	}
	if filter.ServiceName != "" && !strings.EqualFold(record.ServiceName, filter.ServiceName) {
		return false
	}
	if filter.Action != "" && record.Action != filter.Action {
		return false
	}
	if filter.Status != "" && record.Status != filter.Status {
		return false
	}
	if filter.From != nil && record.CreatedAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && record.CreatedAt.After(*filter.To) {
		return false
	}
	return true
}
