package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	JobIDPoll = "soap.poll"

	PredicateTextEquals = "text_equals"
	PredicatePresent    = "present"

	defaultPollJobRetryDelay = 30 * time.Second
)

// PollJob is a poll described by plain data so it can travel through a job
// queue. The predicate is referenced by name and built from PredicateParams.
type PollJob struct {
	Request         ActionRequest
	Predicate       string
	PredicateParams map[string]any
	Overrides       PollSettings
	IdempotencyKey  string
}

type PredicateFactory func(params map[string]any) (AcceptFunc, error)

type PredicateRegistry struct {
	mu        sync.RWMutex
	factories map[string]PredicateFactory
}

func NewPredicateRegistry() *PredicateRegistry {
	return &PredicateRegistry{factories: map[string]PredicateFactory{}}
}

// NewDefaultPredicateRegistry registers text_equals and present.
func NewDefaultPredicateRegistry() *PredicateRegistry {
	registry := NewPredicateRegistry()
	_ = registry.Register(PredicateTextEquals, func(params map[string]any) (AcceptFunc, error) {
		path := splitNodePath(params["path"])
		values := stringList(params["values"])
		if len(values) == 0 {
			if value, ok := params["value"].(string); ok {
				values = []string{value}
			}
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("core: text_equals predicate requires values")
		}
		return AcceptText(path, values...), nil
	})
	_ = registry.Register(PredicatePresent, func(params map[string]any) (AcceptFunc, error) {
		path := splitNodePath(params["path"])
		if len(path) == 0 {
			return nil, fmt.Errorf("core: present predicate requires path")
		}
		return AcceptPresent(path...), nil
	})
	return registry
}

func (r *PredicateRegistry) Register(name string, factory PredicateFactory) error {
	if r == nil {
		return fmt.Errorf("core: predicate registry is nil")
	}
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return fmt.Errorf("core: predicate name is required")
	}
	if factory == nil {
		return fmt.Errorf("core: predicate factory is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("core: predicate %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

func (r *PredicateRegistry) Build(name string, params map[string]any) (AcceptFunc, error) {
	if r == nil {
		return nil, fmt.Errorf("core: predicate registry is nil")
	}
	name = strings.TrimSpace(strings.ToLower(name))
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("core: predicate %q not registered", name)
	}
	return factory(cloneFields(params))
}

func (r *PredicateRegistry) Names() []string {
	if r == nil {
		return []string{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewPollJobMessage encodes job as a queue message.
func NewPollJobMessage(job PollJob) (*JobExecutionMessage, error) {
	req := normalizeActionRequest(job.Request)
	if err := validateActionRequest(req); err != nil {
		return nil, err
	}
	predicate := strings.TrimSpace(strings.ToLower(job.Predicate))
	if predicate == "" {
		return nil, fmt.Errorf("core: predicate is required")
	}
	params := map[string]any{
		"endpoint":         req.Endpoint,
		"service_name":     req.ServiceName,
		"action":           req.Action,
		"predicate":        predicate,
		"predicate_params": cloneFields(job.PredicateParams),
	}
	if req.Arguments != nil {
		params["arguments"] = req.Arguments
	}
	if len(req.Headers) > 0 {
		headers := make(map[string]any, len(req.Headers))
		for key, value := range req.Headers {
			headers[key] = value
		}
		params["headers"] = headers
	}
	if job.Overrides.MaxAttempts != 0 {
		params["max_attempts"] = job.Overrides.MaxAttempts
	}
	if job.Overrides.InitialWait > 0 {
		params["initial_wait_ms"] = job.Overrides.InitialWait.Milliseconds()
	}
	if job.Overrides.MaxWait > 0 {
		params["max_wait_ms"] = job.Overrides.MaxWait.Milliseconds()
	}
	if job.Overrides.Timeout > 0 {
		params["timeout_ms"] = job.Overrides.Timeout.Milliseconds()
	}
	return &JobExecutionMessage{
		JobID:          JobIDPoll,
		Parameters:     params,
		IdempotencyKey: strings.TrimSpace(job.IdempotencyKey),
	}, nil
}

// ParsePollJobMessage decodes a message built by NewPollJobMessage. Numeric
// values may arrive as float64 after a JSON round trip.
func ParsePollJobMessage(msg *JobExecutionMessage) (PollJob, error) {
	if msg == nil {
		return PollJob{}, fmt.Errorf("core: job message is required")
	}
	if strings.TrimSpace(msg.JobID) != JobIDPoll {
		return PollJob{}, fmt.Errorf("core: unsupported job id %q", msg.JobID)
	}
	params := msg.Parameters
	job := PollJob{
		Request: ActionRequest{
			Endpoint:    paramString(params, "endpoint"),
			ServiceName: paramString(params, "service_name"),
			Action:      paramString(params, "action"),
			Arguments:   params["arguments"],
		},
		Predicate:      paramString(params, "predicate"),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		Overrides: PollSettings{
			MaxAttempts: layerInt(params, "max_attempts", 0),
			InitialWait: time.Duration(layerInt(params, "initial_wait_ms", 0)) * time.Millisecond,
			MaxWait:     time.Duration(layerInt(params, "max_wait_ms", 0)) * time.Millisecond,
			Timeout:     time.Duration(layerInt(params, "timeout_ms", 0)) * time.Millisecond,
		},
	}
	if predicateParams, ok := params["predicate_params"].(map[string]any); ok {
		job.PredicateParams = cloneFields(predicateParams)
	}
	if headers, ok := params["headers"].(map[string]any); ok {
		job.Request.Headers = make(map[string]string, len(headers))
		for key, value := range headers {
			job.Request.Headers[key] = fmt.Sprint(value)
		}
	}
	if err := validateActionRequest(normalizeActionRequest(job.Request)); err != nil {
		return PollJob{}, err
	}
	if strings.TrimSpace(job.Predicate) == "" {
		return PollJob{}, fmt.Errorf("core: predicate is required")
	}
	return job, nil
}

type PollJobResultHandler func(ctx context.Context, job PollJob, result PollResult, err error)

// PollJobRunner executes queued poll jobs. Transport failures are requeued;
// every other failure is dead-lettered.
type PollJobRunner struct {
	invoker    Invoker
	predicates *PredicateRegistry
	retryDelay time.Duration
	onResult   PollJobResultHandler
}

func NewPollJobRunner(invoker Invoker, predicates *PredicateRegistry) (*PollJobRunner, error) {
	if invoker == nil {
		return nil, fmt.Errorf("core: invoker is required")
	}
	if predicates == nil {
		predicates = NewDefaultPredicateRegistry()
	}
	return &PollJobRunner{
		invoker:    invoker,
		predicates: predicates,
		retryDelay: defaultPollJobRetryDelay,
	}, nil
}

func (r *PollJobRunner) WithRetryDelay(delay time.Duration) *PollJobRunner {
	if r != nil && delay > 0 {
		r.retryDelay = delay
	}
	return r
}

func (r *PollJobRunner) OnResult(handler PollJobResultHandler) *PollJobRunner {
	if r != nil {
		r.onResult = handler
	}
	return r
}

func (r *PollJobRunner) Enqueue(ctx context.Context, enqueuer JobEnqueuer, job PollJob) error {
	if r == nil {
		return fmt.Errorf("core: poll job runner is nil")
	}
	if enqueuer == nil {
		return fmt.Errorf("core: job enqueuer is required")
	}
	if _, err := r.predicates.Build(job.Predicate, job.PredicateParams); err != nil {
		return err
	}
	msg, err := NewPollJobMessage(job)
	if err != nil {
		return err
	}
	return enqueuer.Enqueue(ctx, msg)
}

// RunOnce dequeues and handles a single delivery. It reports false when the
// queue returned nothing.
func (r *PollJobRunner) RunOnce(ctx context.Context, dequeuer JobDequeuer) (bool, error) {
	if dequeuer == nil {
		return false, fmt.Errorf("core: job dequeuer is required")
	}
	delivery, err := dequeuer.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if delivery == nil {
		return false, nil
	}
	return true, r.Handle(ctx, delivery)
}

// Handle runs one delivery and settles it. The returned error is the poll
// failure, if any, after the delivery was acked or nacked.
func (r *PollJobRunner) Handle(ctx context.Context, delivery JobDelivery) error {
	if r == nil {
		return fmt.Errorf("core: poll job runner is nil")
	}
	if delivery == nil {
		return fmt.Errorf("core: job delivery is required")
	}

	job, err := ParsePollJobMessage(delivery.Message())
	if err != nil {
		return r.settleFailure(ctx, delivery, JobNackOptions{DeadLetter: true, Reason: err.Error()}, err)
	}
	accept, err := r.predicates.Build(job.Predicate, job.PredicateParams)
	if err != nil {
		return r.settleFailure(ctx, delivery, JobNackOptions{DeadLetter: true, Reason: err.Error()}, err)
	}

	result, pollErr := r.invoker.Poll(ctx, job.Request, accept, PollConfig{PollSettings: job.Overrides})
	if r.onResult != nil {
		r.onResult(ctx, job, result, pollErr)
	}
	if pollErr != nil {
		opts := JobNackOptions{DeadLetter: true, Reason: pollErr.Error()}
		if IsTransportError(pollErr) {
			opts = JobNackOptions{Requeue: true, Delay: r.retryDelay, Reason: pollErr.Error()}
		}
		return r.settleFailure(ctx, delivery, opts, pollErr)
	}
	return delivery.Ack(ctx)
}

func (r *PollJobRunner) settleFailure(ctx context.Context, delivery JobDelivery, opts JobNackOptions, cause error) error {
	if nackErr := delivery.Nack(ctx, opts); nackErr != nil {
		return fmt.Errorf("core: nack poll job: %w (cause: %v)", nackErr, cause)
	}
	return cause
}

func paramString(params map[string]any, key string) string {
	value, ok := params[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func splitNodePath(value any) []string {
	switch typed := value.(type) {
	case string:
		if strings.TrimSpace(typed) == "" {
			return nil
		}
		parts := strings.Split(typed, ".")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	default:
		return stringList(value)
	}
}

func stringList(value any) []string {
	switch typed := value.(type) {
	case []string:
		return append([]string(nil), typed...)
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}
