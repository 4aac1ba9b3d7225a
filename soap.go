package soap

import (
	"github.com/goliatone/go-soap/core"
	"github.com/goliatone/go-soap/transport"
)

type Config = core.Config

type TransportConfig = core.TransportConfig

type Option = core.Option

type Client = core.Client

type ClientDependencies = core.ClientDependencies

type ActionRequest = core.ActionRequest
type Node = core.Node
type AcceptFunc = core.AcceptFunc
type PollConfig = core.PollConfig
type PollSettings = core.PollSettings
type PollResult = core.PollResult
type PollJob = core.PollJob

type CallRecord = core.CallRecord
type CallSummary = core.CallSummary
type CallAttemptFilter = core.CallAttemptFilter
type CallAttemptPage = core.CallAttemptPage
type CallRetentionPolicy = core.CallRetentionPolicy

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithErrorMapper       = core.WithErrorMapper
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithTransport         = core.WithTransport
	WithTransportResolver = core.WithTransportResolver
	WithCodec             = core.WithCodec
	WithCallRecorder      = core.WithCallRecorder
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithCallIDGenerator   = core.WithCallIDGenerator
	WithSleeper           = core.WithSleeper
	WithClock             = core.WithClock
)

var (
	AcceptText    = core.AcceptText
	AcceptPresent = core.AcceptPresent
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// NewClient builds a client whose transport is resolved from the default
// adapter registry unless an option supplies one.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	all := make([]Option, 0, len(opts)+1)
	all = append(all, core.WithTransportResolver(transport.NewDefaultRegistry()))
	all = append(all, opts...)
	return core.NewClient(cfg, all...)
}

func Setup(cfg Config, opts ...Option) (*Client, error) {
	return NewClient(cfg, opts...)
}
