package prommetrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-soap/core"
	"github.com/prometheus/client_golang/prometheus"
)

// LabelKeys are the tag keys the client emits. Other tags are dropped so every
// series of a metric shares one label set.
var LabelKeys = []string{"operation", "status", "error_code", "service_name", "action"}

// DefaultDurationBuckets are millisecond buckets for soap.*.duration_ms.
var DefaultDurationBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

type Option func(*Recorder)

func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		r.namespace = sanitizeName(namespace)
	}
}

func WithBuckets(buckets []float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = append([]float64(nil), buckets...)
		}
	}
}

// Recorder implements core.MetricsRecorder on top of client_golang. Vectors
// are created and registered lazily the first time a metric name is seen.
type Recorder struct {
	registerer prometheus.Registerer
	namespace  string
	buckets    []float64

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

func NewRecorder(registerer prometheus.Registerer, opts ...Option) (*Recorder, error) {
	if registerer == nil {
		return nil, fmt.Errorf("prommetrics: registerer is required")
	}
	recorder := &Recorder{
		registerer: registerer,
		buckets:    append([]float64(nil), DefaultDurationBuckets...),
		counters:   map[string]*prometheus.CounterVec{},
		histograms: map[string]*prometheus.HistogramVec{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(recorder)
		}
	}
	return recorder, nil
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value < 0 {
		return
	}
	vec, err := r.counter(name)
	if err != nil {
		return
	}
	vec.With(labelsFor(tags)).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	vec, err := r.histogram(name)
	if err != nil {
		return
	}
	vec.With(labelsFor(tags)).Observe(value)
}

func (r *Recorder) counter(name string) (*prometheus.CounterVec, error) {
	metricName := sanitizeName(name)
	if metricName == "" {
		return nil, fmt.Errorf("prommetrics: metric name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if vec, ok := r.counters[metricName]; ok {
		return vec, nil
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      metricName,
		Help:      "SOAP client counter " + strings.TrimSpace(name),
	}, LabelKeys)
	if err := r.registerer.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		vec = existing
	}
	r.counters[metricName] = vec
	return vec, nil
}

func (r *Recorder) histogram(name string) (*prometheus.HistogramVec, error) {
	metricName := sanitizeName(name)
	if metricName == "" {
		return nil, fmt.Errorf("prommetrics: metric name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if vec, ok := r.histograms[metricName]; ok {
		return vec, nil
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      metricName,
		Help:      "SOAP client histogram " + strings.TrimSpace(name),
		Buckets:   r.buckets,
	}, LabelKeys)
	if err := r.registerer.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, err
		}
		vec = existing
	}
	r.histograms[metricName] = vec
	return vec, nil
}

func labelsFor(tags map[string]string) prometheus.Labels {
	labels := make(prometheus.Labels, len(LabelKeys))
	for _, key := range LabelKeys {
		labels[key] = strings.TrimSpace(tags[key])
	}
	return labels
}

// sanitizeName maps soap.invoke.total to soap_invoke_total.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

var _ core.MetricsRecorder = (*Recorder)(nil)
