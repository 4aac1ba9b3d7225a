package core

import (
	"context"
	"io"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-soap/envelope"
)

type Node = envelope.Node

const TextKey = envelope.TextKey

// Transport metadata keys shared with transport adapters.
const (
	MetadataServiceName = "service_name"
	MetadataAction      = "action"
	MetadataCallID      = "call_id"
	MetadataAttempt     = "attempt"
	MetadataTimeout     = "timeout"
)

// ActionRequest names one remote operation and its arguments. Arguments may
// be nil, a scalar, a string-keyed map, envelope.Params, a slice, or any
// nesting of those.
type ActionRequest struct {
	Endpoint    string
	ServiceName string
	Action      string
	Arguments   any
	Headers     map[string]string
}

type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Metadata             map[string]any
	Timeout              time.Duration
	MaxResponseBodyBytes int64
	Idempotency          string
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type TransportResolver interface {
	Build(kind string, config map[string]any) (TransportAdapter, error)
}

type EnvelopeCodec interface {
	Encode(action string, args any) ([]byte, error)
	Decode(r io.Reader) (Node, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// AcceptFunc decides whether a decoded response ends a poll. A false result,
// an error, or a panic all mean "not yet".
type AcceptFunc func(node Node) (bool, error)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type CallRecorder interface {
	Record(ctx context.Context, record CallRecord) error
}

type CallJournalReader interface {
	List(ctx context.Context, filter CallAttemptFilter) (CallAttemptPage, error)
	Summary(ctx context.Context, callID string) (CallSummary, error)
}

type CallJournal interface {
	CallRecorder
	CallJournalReader
}

type Invoker interface {
	Invoke(ctx context.Context, req ActionRequest) (Node, error)
	Poll(ctx context.Context, req ActionRequest, accept AcceptFunc, overrides PollConfig) (PollResult, error)
}

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}
