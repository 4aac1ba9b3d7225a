package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-soap/core"
)

const KindREST = "rest"

const defaultRESTIdleTimeout = core.DefaultTransportTimeout
const defaultRESTResponseBodyLimit int64 = core.DefaultMaxResponseBodyBytes

// ErrIdleTimeout is the cancel cause when a request made no progress for its
// whole idle window.
var ErrIdleTimeout = errors.New("transport: idle timeout")

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RESTAdapter is the plain HTTP engine the SOAP adapter sends through. It
// returns any status code as a response and leaves status policy to callers.
//
// TransportRequest.Timeout is an idle window: it restarts whenever response
// bytes arrive, so a slow but steady body is not cut off. IdleTimeout is used
// when the request carries no window.
type RESTAdapter struct {
	Client               HTTPDoer
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
	IdleTimeout          time.Duration
}

// NewRESTAdapter uses a plain http.Client when client is nil. The default
// client has no overall timeout; the idle window bounds each call instead.
func NewRESTAdapter(client HTTPDoer) *RESTAdapter {
	if client == nil {
		client = &http.Client{}
	}
	return &RESTAdapter{
		Client:               client,
		DefaultHeaders:       map[string]string{},
		MaxResponseBodyBytes: defaultRESTResponseBodyLimit,
		IdleTimeout:          defaultRESTIdleTimeout,
	}
}

func (*RESTAdapter) Kind() string {
	return KindREST
}

func (a *RESTAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil || a.Client == nil {
		return core.TransportResponse{}, transportError(
			"transport: rest adapter requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{"adapter": KindREST},
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	target, err := requestURL(req)
	if err != nil {
		return core.TransportResponse{}, err
	}
	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	window := req.Timeout
	if window <= 0 {
		window = a.IdleTimeout
	}
	requestCtx, watchdog := startIdleWatchdog(ctx, window)
	defer watchdog.stop()

	httpReq, err := http.NewRequestWithContext(requestCtx, method, target, bytes.NewReader(req.Body))
	if err != nil {
		return core.TransportResponse{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: create http request",
			http.StatusBadRequest,
			map[string]any{"adapter": KindREST, "method": method, "url": target},
		)
	}
	setHeaders(httpReq.Header, a.DefaultHeaders)
	setHeaders(httpReq.Header, req.Headers)

	startedAt := time.Now().UTC()
	httpRes, err := a.Client.Do(httpReq)
	if err != nil {
		return core.TransportResponse{}, a.failure(requestCtx, err, "transport: execute http request",
			map[string]any{"adapter": KindREST, "method": method, "url": target})
	}
	defer httpRes.Body.Close()
	watchdog.touch()

	limit := resolveResponseBodyLimit(req.MaxResponseBodyBytes, a.MaxResponseBodyBytes)
	body, err := io.ReadAll(io.LimitReader(&idleReader{source: httpRes.Body, watchdog: watchdog}, limit+1))
	if err != nil {
		return core.TransportResponse{}, a.failure(requestCtx, err, "transport: read response body",
			map[string]any{"adapter": KindREST, "status_code": httpRes.StatusCode})
	}
	if int64(len(body)) > limit {
		return core.TransportResponse{}, transportError(
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", limit),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{
				"adapter":          KindREST,
				"status_code":      httpRes.StatusCode,
				"response_limit_b": limit,
			},
		)
	}

	return core.TransportResponse{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       body,
		Metadata: map[string]any{
			"duration_ms": time.Since(startedAt).Milliseconds(),
			"kind":        KindREST,
		},
	}, nil
}

// failure flags both net timeouts and the idle watchdog as timeouts (504).
func (a *RESTAdapter) failure(requestCtx context.Context, err error, message string, metadata map[string]any) error {
	code := http.StatusBadGateway
	if isTimeout(err) || errors.Is(context.Cause(requestCtx), ErrIdleTimeout) {
		metadata[core.MetadataTimeout] = true
		code = http.StatusGatewayTimeout
	}
	return transportWrapError(err, goerrors.CategoryExternal, message, code, metadata)
}

func requestURL(req core.TransportRequest) (string, error) {
	raw := strings.TrimSpace(req.URL)
	if raw == "" {
		return "", transportError(
			"transport: request url is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"adapter": KindREST},
		)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: invalid request url",
			http.StatusBadRequest,
			map[string]any{"adapter": KindREST, "url": raw},
		)
	}
	if len(req.Query) == 0 {
		return parsed.String(), nil
	}
	query := parsed.Query()
	for key, value := range req.Query {
		if key = strings.TrimSpace(key); key != "" {
			query.Set(key, strings.TrimSpace(value))
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func setHeaders(dst http.Header, src map[string]string) {
	for key, value := range src {
		if key = strings.TrimSpace(key); key != "" {
			dst.Set(key, strings.TrimSpace(value))
		}
	}
}

type idleWatchdog struct {
	window time.Duration
	timer  *time.Timer
	cancel context.CancelCauseFunc
}

// startIdleWatchdog returns a context canceled with ErrIdleTimeout once
// window passes without touch. A non-positive window disables it.
func startIdleWatchdog(parent context.Context, window time.Duration) (context.Context, *idleWatchdog) {
	ctx, cancel := context.WithCancelCause(parent)
	watchdog := &idleWatchdog{window: window, cancel: cancel}
	if window > 0 {
		watchdog.timer = time.AfterFunc(window, func() { cancel(ErrIdleTimeout) })
	}
	return ctx, watchdog
}

func (w *idleWatchdog) touch() {
	if w.timer != nil {
		w.timer.Reset(w.window)
	}
}

func (w *idleWatchdog) stop() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.cancel(nil)
}

type idleReader struct {
	source   io.Reader
	watchdog *idleWatchdog
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.source.Read(p)
	if n > 0 {
		r.watchdog.touch()
	}
	return n, err
}

func flattenHeaders(headers http.Header) map[string]string {
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

func resolveResponseBodyLimit(requestLimit int64, adapterLimit int64) int64 {
	switch {
	case requestLimit > 0:
		return requestLimit
	case adapterLimit > 0:
		return adapterLimit
	default:
		return defaultRESTResponseBodyLimit
	}
}

var _ core.TransportAdapter = (*RESTAdapter)(nil)
