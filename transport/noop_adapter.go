package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-soap/core"
)

const KindSOAP = "soap"

// UnsupportedAdapter fills a registry slot for a kind that has no engine
// wired yet. Every call fails.
type UnsupportedAdapter struct {
	kind   string
	reason string
}

func NewUnsupportedAdapter(kind string, reason string) *UnsupportedAdapter {
	return &UnsupportedAdapter{
		kind:   strings.TrimSpace(strings.ToLower(kind)),
		reason: strings.TrimSpace(reason),
	}
}

func (a *UnsupportedAdapter) Kind() string {
	if a == nil {
		return ""
	}
	return a.kind
}

func (a *UnsupportedAdapter) Do(context.Context, core.TransportRequest) (core.TransportResponse, error) {
	if a == nil {
		return core.TransportResponse{}, fmt.Errorf("transport: adapter is nil")
	}
	message := fmt.Sprintf("transport: %s adapter is not configured", a.kind)
	if a.reason != "" {
		message = message + ": " + a.reason
	}
	return core.TransportResponse{}, transportError(
		message,
		goerrors.CategoryOperation,
		http.StatusNotImplemented,
		map[string]any{"adapter": a.kind},
	)
}

var _ core.TransportAdapter = (*UnsupportedAdapter)(nil)
