package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type callAttemptRecord struct {
	bun.BaseModel `bun:"table:soap_call_attempts,alias:sca"`

	ID          string         `bun:"id,pk"`
	CallID      string         `bun:"call_id,notnull"`
	Endpoint    string         `bun:"endpoint,notnull"`
	ServiceName string         `bun:"service_name,notnull"`
	Action      string         `bun:"action,notnull"`
	Attempt     int            `bun:"attempt,notnull"`
	Stage       string         `bun:"stage,notnull"`
	Status      string         `bun:"status,notnull"`
	ErrorCode   string         `bun:"error_code,notnull"`
	Error       string         `bun:"error,notnull"`
	DurationMS  int64          `bun:"duration_ms,notnull"`
	Metadata    map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt   time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
