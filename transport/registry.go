package transport

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-soap/core"
)

type AdapterFactory func(config map[string]any) (core.TransportAdapter, error)

type Registry struct {
	mu        sync.RWMutex
	adapters  map[string]core.TransportAdapter
	factories map[string]AdapterFactory
}

func NewRegistry() *Registry {
	return &Registry{
		adapters:  map[string]core.TransportAdapter{},
		factories: map[string]AdapterFactory{},
	}
}

// NewDefaultRegistry registers the shared REST engine and a factory that
// builds a SOAP adapter from core.TransportConfig.AdapterConfig output.
func NewDefaultRegistry() *Registry {
	registry := NewRegistry()
	_ = registry.Register(NewRESTAdapter(nil))
	_ = registry.RegisterFactory(KindSOAP, SOAPAdapterFactory)
	return registry
}

func (r *Registry) Register(adapter core.TransportAdapter) error {
	if r == nil {
		return fmt.Errorf("transport: registry is nil")
	}
	if adapter == nil {
		return fmt.Errorf("transport: adapter is nil")
	}
	kind := normalizeKind(adapter.Kind())
	if kind == "" {
		return fmt.Errorf("transport: adapter kind is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[kind]; exists {
		return fmt.Errorf("transport: adapter kind %q already registered", kind)
	}
	r.adapters[kind] = adapter
	return nil
}

func (r *Registry) RegisterFactory(kind string, factory AdapterFactory) error {
	if r == nil {
		return fmt.Errorf("transport: registry is nil")
	}
	kind = normalizeKind(kind)
	if kind == "" {
		return fmt.Errorf("transport: adapter kind is required")
	}
	if factory == nil {
		return fmt.Errorf("transport: adapter factory is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("transport: adapter factory kind %q already registered", kind)
	}
	r.factories[kind] = factory
	return nil
}

func (r *Registry) Build(kind string, config map[string]any) (core.TransportAdapter, error) {
	if r == nil {
		return nil, fmt.Errorf("transport: registry is nil")
	}
	kind = normalizeKind(kind)
	if kind == "" {
		return nil, fmt.Errorf("transport: adapter kind is required")
	}

	r.mu.RLock()
	adapter, ok := r.adapters[kind]
	factory := r.factories[kind]
	r.mu.RUnlock()
	if ok {
		return adapter, nil
	}
	if factory == nil {
		return nil, fmt.Errorf("transport: adapter kind %q not registered", kind)
	}
	built, err := factory(cloneMap(config))
	if err != nil {
		return nil, err
	}
	if built == nil {
		return nil, fmt.Errorf("transport: factory for %q returned nil adapter", kind)
	}
	return built, nil
}

func (r *Registry) Get(kind string) (core.TransportAdapter, bool) {
	if r == nil {
		return nil, false
	}
	kind = normalizeKind(kind)
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[kind]
	return adapter, ok
}

func (r *Registry) List() []core.TransportAdapter {
	if r == nil {
		return []core.TransportAdapter{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.adapters))
	for kind := range r.adapters {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	result := make([]core.TransportAdapter, 0, len(kinds))
	for _, kind := range kinds {
		result = append(result, r.adapters[kind])
	}
	return result
}

func normalizeKind(kind string) string {
	return strings.TrimSpace(strings.ToLower(kind))
}

// RegisterUnsupported reserves kind with an adapter that fails every call.
func (r *Registry) RegisterUnsupported(kind string, reason string) error {
	return r.RegisterFactory(kind, func(config map[string]any) (core.TransportAdapter, error) {
		detail := strings.TrimSpace(reason)
		if configured, ok := config["reason"].(string); ok && strings.TrimSpace(configured) != "" {
			detail = configured
		}
		return NewUnsupportedAdapter(kind, detail), nil
	})
}

// SOAPAdapterFactory reads user_agent, timeout and max_response_body_bytes.
// timeout is the idle window; the http.Client gets no overall deadline so a
// steady response is never cut off mid-body.
func SOAPAdapterFactory(config map[string]any) (core.TransportAdapter, error) {
	timeout, err := configDuration(config, "timeout", core.DefaultTransportTimeout)
	if err != nil {
		return nil, err
	}
	limit, err := configInt64(config, "max_response_body_bytes", core.DefaultMaxResponseBodyBytes)
	if err != nil {
		return nil, err
	}
	adapter := NewSOAPAdapter(&http.Client{}).
		WithMaxResponseBodyBytes(limit).
		WithIdleTimeout(timeout)
	if userAgent, ok := config["user_agent"].(string); ok && strings.TrimSpace(userAgent) != "" {
		adapter.UserAgent = strings.TrimSpace(userAgent)
	}
	return adapter, nil
}

func configDuration(config map[string]any, key string, fallback time.Duration) (time.Duration, error) {
	switch typed := config[key].(type) {
	case nil:
		return fallback, nil
	case time.Duration:
		if typed <= 0 {
			return fallback, nil
		}
		return typed, nil
	case string:
		parsed, err := time.ParseDuration(strings.TrimSpace(typed))
		if err != nil {
			return 0, fmt.Errorf("transport: %s is invalid: %w", key, err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("transport: %s has unsupported type %T", key, typed)
	}
}

func configInt64(config map[string]any, key string, fallback int64) (int64, error) {
	var value int64
	switch typed := config[key].(type) {
	case nil:
		return fallback, nil
	case int64:
		value = typed
	case int:
		value = int64(typed)
	case float64:
		value = int64(typed)
	default:
		return 0, fmt.Errorf("transport: %s has unsupported type %T", key, typed)
	}
	if value <= 0 {
		return fallback, nil
	}
	return value, nil
}

func cloneMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}
var _ core.TransportResolver = (*Registry)(nil)
