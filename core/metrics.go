package core

import "context"

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

// MultiMetricsRecorder fans every observation out to each recorder in order.
type MultiMetricsRecorder []MetricsRecorder

func (m MultiMetricsRecorder) IncCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	for _, recorder := range m {
		if recorder == nil {
			continue
		}
		recorder.IncCounter(ctx, name, value, cloneTags(tags))
	}
}

func (m MultiMetricsRecorder) ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	for _, recorder := range m {
		if recorder == nil {
			continue
		}
		recorder.ObserveHistogram(ctx, name, value, cloneTags(tags))
	}
}

func cloneTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}

var (
	_ MetricsRecorder = NopMetricsRecorder{}
	_ MetricsRecorder = MultiMetricsRecorder(nil)
)
