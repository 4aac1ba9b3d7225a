package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-soap/envelope"
)

// StageComplete marks a journaled single invocation that finished cleanly.
const StageComplete = "complete"

// Client issues SOAP calls. It is safe for concurrent use; every call owns
// its own state.
type Client struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorMapper       ErrorMapper
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	codec             EnvelopeCodec
	transport         TransportAdapter
	transportResolver TransportResolver
	callRecorder      CallRecorder
	now               func() time.Time
	sleep             SleepFunc
	newCallID         func() string
}

type ClientDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorMapper       ErrorMapper
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	Codec             EnvelopeCodec
	Transport         TransportAdapter
	TransportResolver TransportResolver
	CallRecorder      CallRecorder
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	builder := defaultClientBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("soap", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("soap"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.codec == nil {
		builder.codec = envelope.NewCodec()
	}
	if builder.now == nil {
		builder.now = utcNow
	}
	if builder.sleep == nil {
		builder.sleep = waitWithContext
	}
	if builder.newCallID == nil {
		builder.newCallID = newCallID
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	adapter := builder.transport
	if adapter == nil {
		if builder.transportResolver == nil {
			return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: transport adapter or transport resolver is required"))
		}
		adapter, err = builder.transportResolver.Build(finalConfig.Transport.Kind, finalConfig.Transport.AdapterConfig())
		if err != nil {
			return nil, mapBuildError(builder.errorMapper, err)
		}
		if adapter == nil {
			return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: transport resolver returned nil adapter for kind %q", finalConfig.Transport.Kind))
		}
	}

	return &Client{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorMapper:       builder.errorMapper,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		codec:             builder.codec,
		transport:         adapter,
		transportResolver: builder.transportResolver,
		callRecorder:      builder.callRecorder,
		now:               builder.now,
		sleep:             builder.sleep,
		newCallID:         builder.newCallID,
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Client, error) {
	return NewClient(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (c *Client) mapError(err error) error {
	if err == nil {
		return nil
	}
	if c == nil || c.errorMapper == nil {
		return err
	}
	if mapped := c.errorMapper(err); mapped != nil {
		return mapped
	}
	return err
}

func (c *Client) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.config
}

func (c *Client) Dependencies() ClientDependencies {
	if c == nil {
		return ClientDependencies{}
	}
	return ClientDependencies{
		Logger:            c.logger,
		LoggerProvider:    c.loggerProvider,
		MetricsRecorder:   c.metricsRecorder,
		ErrorMapper:       c.errorMapper,
		ConfigProvider:    c.configProvider,
		OptionsResolver:   c.optionsResolver,
		Codec:             c.codec,
		Transport:         c.transport,
		TransportResolver: c.transportResolver,
		CallRecorder:      c.callRecorder,
	}
}

// PollDefaults returns the configured poll settings as a PollConfig.
func (c *Client) PollDefaults() PollConfig {
	if c == nil {
		return DefaultPollConfig()
	}
	return PollConfig{
		PollSettings: c.config.Poll,
		WaitGrowth:   DoublingGrowth,
	}.normalized()
}

type callAttempt struct {
	id      string
	attempt int
}

// Invoke performs one request/response cycle. Failures are never retried.
func (c *Client) Invoke(ctx context.Context, req ActionRequest) (node Node, err error) {
	if c == nil {
		return nil, fmt.Errorf("core: client is nil")
	}
	call := callAttempt{id: c.newCallID(), attempt: 1}
	startedAt := c.now()
	node, err = c.invoke(ctx, req, call)
	if err == nil {
		c.journal(ctx, req, call, StageComplete, CallStatusSucceeded, nil, startedAt)
	}
	return node, err
}

func (c *Client) invoke(ctx context.Context, req ActionRequest, call callAttempt) (node Node, err error) {
	startedAt := c.now()
	req = normalizeActionRequest(req)
	stage := StageValidate
	fields := map[string]any{
		"call_id":      call.id,
		"attempt":      call.attempt,
		"service_name": req.ServiceName,
		"action":       req.Action,
		"endpoint":     req.Endpoint,
	}
	defer func() {
		if err != nil {
			fields["stage"] = stage
			c.journal(ctx, req, call, stage, CallStatusFailed, err, startedAt)
		}
		c.observeOperation(ctx, startedAt, "invoke", err, fields)
	}()

	metadata := func() map[string]any {
		return map[string]any{
			"stage":        stage,
			"call_id":      call.id,
			"attempt":      call.attempt,
			"service_name": req.ServiceName,
			"action":       req.Action,
			"endpoint":     req.Endpoint,
		}
	}

	if err := validateActionRequest(req); err != nil {
		return nil, c.mapError(newSOAPError(err.Error(), goerrors.CategoryBadInput, ErrorBadInput, metadata()))
	}

	stage = StageEncode
	body, encodeErr := c.codec.Encode(req.Action, req.Arguments)
	if encodeErr != nil {
		return nil, c.mapError(wrapSOAPError(encodeErr, goerrors.CategoryBadInput, ErrorEncodingFailed,
			"core: encode envelope failed", metadata()))
	}

	stage = StageTransport
	response, transportErr := c.transport.Do(ctx, TransportRequest{
		Method:  http.MethodPost,
		URL:     req.Endpoint,
		Headers: cloneHeaders(req.Headers),
		Body:    body,
		Metadata: map[string]any{
			MetadataServiceName: req.ServiceName,
			MetadataAction:      req.Action,
			MetadataCallID:      call.id,
			MetadataAttempt:     call.attempt,
		},
		Timeout:              c.config.Transport.Timeout,
		MaxResponseBodyBytes: c.config.Transport.MaxResponseBodyBytes,
	})
	if transportErr != nil {
		md := metadata()
		if isTimeoutError(transportErr) {
			md[MetadataTimeout] = true
		}
		return nil, c.mapError(wrapSOAPError(transportErr, goerrors.CategoryExternal, ErrorTransportFailed,
			"core: transport failed", md))
	}
	fields["status_code"] = response.StatusCode
	fields["response_bytes"] = len(response.Body)

	stage = StageParse
	decoded, parseErr := c.codec.Decode(bytes.NewReader(response.Body))
	if parseErr != nil {
		return nil, c.mapError(wrapSOAPError(parseErr, goerrors.CategoryExternal, ErrorParseFailed,
			"core: parse response failed", metadata()))
	}

	if c.config.FailOnFault {
		stage = StageFault
		if faultErr := faultFromNode(decoded, metadata()); faultErr != nil {
			return nil, c.mapError(faultErr)
		}
	}
	return decoded, nil
}

func normalizeActionRequest(req ActionRequest) ActionRequest {
	return ActionRequest{
		Endpoint:    strings.TrimSpace(req.Endpoint),
		ServiceName: strings.TrimSpace(req.ServiceName),
		Action:      strings.TrimSpace(req.Action),
		Arguments:   req.Arguments,
		Headers:     req.Headers,
	}
}

func validateActionRequest(req ActionRequest) error {
	if req.Endpoint == "" {
		return fmt.Errorf("core: endpoint is required")
	}
	if req.Action == "" {
		return fmt.Errorf("core: action is required")
	}
	return nil
}

// faultFromNode reports a SOAP 1.1 or 1.2 fault at the response root.
func faultFromNode(node Node, metadata map[string]any) error {
	fault, ok := node.Child("Fault")
	if !ok {
		return nil
	}
	code := fault.TextAt("faultcode")
	if code == "" {
		code = fault.TextAt("Code", "Value")
	}
	reason := fault.TextAt("faultstring")
	if reason == "" {
		reason = fault.TextAt("Reason", "Text")
	}
	if reason == "" {
		reason = "remote fault"
	}
	metadata["faultcode"] = code
	metadata["faultstring"] = reason
	return newSOAPError("core: soap fault: "+reason, goerrors.CategoryExternal, ErrorFault, metadata)
}

func isTimeoutError(err error) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Metadata != nil {
		if flagged, ok := richErr.Metadata[MetadataTimeout].(bool); ok && flagged {
			return true
		}
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Timeout()
	}
	return false
}

func (c *Client) journal(
	ctx context.Context,
	req ActionRequest,
	call callAttempt,
	stage string,
	status CallStatus,
	cause error,
	startedAt time.Time,
) {
	if c == nil || c.callRecorder == nil {
		return
	}
	now := c.now()
	record := CallRecord{
		CallID:      call.id,
		Endpoint:    strings.TrimSpace(req.Endpoint),
		ServiceName: strings.TrimSpace(req.ServiceName),
		Action:      strings.TrimSpace(req.Action),
		Attempt:     call.attempt,
		Stage:       stage,
		Status:      status,
		DurationMS:  now.Sub(startedAt).Milliseconds(),
		CreatedAt:   now,
	}
	if cause != nil {
		record.Error = cause.Error()
		record.ErrorCode = ErrorTextCode(cause)
	}
	writeCtx := context.Background()
	if ctx != nil {
		writeCtx = context.WithoutCancel(ctx)
	}
	if err := c.callRecorder.Record(writeCtx, record); err != nil {
		c.logWarn(ctx, "call journal write failed", map[string]any{
			"call_id": call.id,
			"attempt": call.attempt,
			"error":   err.Error(),
		})
	}
}

func cloneHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(headers))
	for key, value := range headers {
		out[key] = value
	}
	return out
}
