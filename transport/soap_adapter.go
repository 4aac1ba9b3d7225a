package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-soap/core"
)

// SOAPAdapter POSTs envelopes through a RESTAdapter. Status 500 is passed
// through because SOAP faults travel with it; every other status >= 400 is a
// transport error.
type SOAPAdapter struct {
	UserAgent string
	rest      *RESTAdapter
}

func NewSOAPAdapter(client HTTPDoer) *SOAPAdapter {
	return &SOAPAdapter{
		UserAgent: core.DefaultUserAgent,
		rest:      NewRESTAdapter(client),
	}
}

// WithIdleTimeout sets the idle window used when a request does not carry
// its own.
func (a *SOAPAdapter) WithIdleTimeout(window time.Duration) *SOAPAdapter {
	if a != nil && a.rest != nil && window > 0 {
		a.rest.IdleTimeout = window
	}
	return a
}

func (*SOAPAdapter) Kind() string {
	return KindSOAP
}

// WithMaxResponseBodyBytes sets the adapter-wide response cap used when a
// request does not carry its own.
func (a *SOAPAdapter) WithMaxResponseBodyBytes(limit int64) *SOAPAdapter {
	if a != nil && a.rest != nil && limit > 0 {
		a.rest.MaxResponseBodyBytes = limit
	}
	return a
}

func (a *SOAPAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil || a.rest == nil {
		return core.TransportResponse{}, transportError(
			"transport: soap adapter is not configured",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{"adapter": KindSOAP},
		)
	}
	resolved := req
	resolved.Method = http.MethodPost
	resolved.Headers = a.headers(req)

	response, err := a.rest.Do(ctx, resolved)
	if err != nil {
		return core.TransportResponse{}, err
	}
	if response.StatusCode >= http.StatusBadRequest && response.StatusCode != http.StatusInternalServerError {
		return core.TransportResponse{}, transportError(
			fmt.Sprintf("transport: soap endpoint returned status %d", response.StatusCode),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{
				"adapter":     KindSOAP,
				"status_code": response.StatusCode,
				"url":         strings.TrimSpace(req.URL),
			},
		)
	}
	response.Metadata = cloneMetadata(response.Metadata)
	response.Metadata["kind"] = KindSOAP
	return response, nil
}

// headers builds the fixed SOAP header set. Caller headers win.
func (a *SOAPAdapter) headers(req core.TransportRequest) map[string]string {
	userAgent := strings.TrimSpace(a.UserAgent)
	if userAgent == "" {
		userAgent = core.DefaultUserAgent
	}
	headers := map[string]string{
		"User-Agent":     userAgent,
		"Accept":         "*/*",
		"Accept-Charset": "utf-8",
		"Content-Type":   "text/xml; charset=utf-8",
	}
	action := metadataString(req.Metadata, core.MetadataAction)
	if action != "" {
		headers["SOAPAction"] = SOAPActionHeader(metadataString(req.Metadata, core.MetadataServiceName), action)
	}
	for key, value := range req.Headers {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			continue
		}
		headers[trimmed] = strings.TrimSpace(value)
	}
	return headers
}

// SOAPActionHeader renders the quoted urn:service#action header value.
func SOAPActionHeader(service string, action string) string {
	return fmt.Sprintf("%q", "urn:"+strings.TrimSpace(service)+"#"+strings.TrimSpace(action))
}

func metadataString(metadata map[string]any, key string) string {
	value, ok := metadata[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func cloneMetadata(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}

var _ core.TransportAdapter = (*SOAPAdapter)(nil)
