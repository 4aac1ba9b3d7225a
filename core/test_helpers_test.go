package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

type scriptedResponse struct {
	body   string
	status int
	err    error
}

// scriptedTransport replays responses in order; the last one repeats.
type scriptedTransport struct {
	mu        sync.Mutex
	responses []scriptedResponse
	handler   func(TransportRequest) (TransportResponse, error)
	requests  []TransportRequest
}

func newScriptedTransport(responses ...scriptedResponse) *scriptedTransport {
	return &scriptedTransport{responses: responses}
}

func (t *scriptedTransport) Kind() string { return "stub" }

func (t *scriptedTransport) Do(_ context.Context, req TransportRequest) (TransportResponse, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, req)
	if t.handler != nil {
		return t.handler(req)
	}
	if len(t.responses) == 0 {
		return TransportResponse{}, errors.New("scripted transport: no responses")
	}
	next := t.responses[0]
	if len(t.responses) > 1 {
		t.responses = t.responses[1:]
	}
	if next.err != nil {
		return TransportResponse{}, next.err
	}
	status := next.status
	if status == 0 {
		status = 200
	}
	return TransportResponse{StatusCode: status, Body: []byte(next.body)}, nil
}

func (t *scriptedTransport) calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

func (t *scriptedTransport) lastRequest() TransportRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.requests) == 0 {
		return TransportRequest{}
	}
	return t.requests[len(t.requests)-1]
}

// fakeClock advances only when the poller sleeps.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) recordedWaits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

type failingCallRecorder struct{}

func (failingCallRecorder) Record(context.Context, CallRecord) error {
	return errors.New("journal unavailable")
}

func sequentialCallIDs() func() string {
	var mu sync.Mutex
	next := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		next++
		return fmt.Sprintf("call_%d", next)
	}
}

func newTestClient(t *testing.T, transport TransportAdapter, opts ...Option) (*Client, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	base := []Option{
		WithTransport(transport),
		WithLogger(stubLogger{}),
		WithLoggerProvider(stubLoggerProvider{logger: stubLogger{}}),
		WithClock(clock.Now),
		WithSleeper(clock.Sleep),
		WithCallIDGenerator(sequentialCallIDs()),
	}
	client, err := NewClient(Config{}, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, clock
}

func statusEnvelope(status string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">` +
		`<SOAP-ENV:Body><ns1:GetStatusResponse xmlns:ns1="urn:jobs">` +
		`<status>` + status + `</status>` +
		`</ns1:GetStatusResponse></SOAP-ENV:Body></SOAP-ENV:Envelope>`
}

func statusRequest() ActionRequest {
	return ActionRequest{
		Endpoint:    "https://soap.example.com/jobs",
		ServiceName: "jobs",
		Action:      "GetStatus",
		Arguments:   map[string]any{"jobId": "42"},
	}
}

func acceptStatus(value string) AcceptFunc {
	return AcceptText([]string{"GetStatusResponse", "status"}, value)
}
