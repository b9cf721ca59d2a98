// Package metrics exposes client request and refresh activity as Prometheus
// collectors, fed through the transport hooks.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/joonyo2/yugwan/internal/types"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "yugwan_client"

// Metrics holds the registered collectors
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	networkErrors   prometheus.Counter
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
}

// New creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "API responses received, by method and status code.",
		}, []string{"method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from dispatch to response headers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		networkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "network_errors_total",
			Help:      "Requests that failed before a response arrived.",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "Token refresh attempts, by result.",
		}, []string{"result"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "token_refresh_duration_seconds",
			Help:      "Duration of token refresh calls.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	collectors := []prometheus.Collector{
		m.requests,
		m.requestDuration,
		m.networkErrors,
		m.refreshes,
		m.refreshDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "failed to register collector")
		}
	}

	return m, nil
}

// Hooks returns transport hooks that record into m. Hooks in next, if any,
// are called after recording.
func (m *Metrics) Hooks(next *types.Hooks) *types.Hooks {
	if next == nil {
		next = &types.Hooks{}
	}

	return &types.Hooks{
		OnRequest: next.OnRequest,
		OnResponse: func(ctx context.Context, resp *http.Response, duration time.Duration) {
			method := http.MethodGet
			if resp.Request != nil && resp.Request.Method != "" {
				method = resp.Request.Method
			}
			m.requests.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
			m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())

			if next.OnResponse != nil {
				next.OnResponse(ctx, resp, duration)
			}
		},
		OnError: func(ctx context.Context, err error) {
			if types.IsNetworkError(err) {
				m.networkErrors.Inc()
			}
			if next.OnError != nil {
				next.OnError(ctx, err)
			}
		},
		OnRefresh: func(ctx context.Context, refreshed bool, duration time.Duration) {
			result := "failure"
			if refreshed {
				result = "success"
			}
			m.refreshes.WithLabelValues(result).Inc()
			m.refreshDuration.Observe(duration.Seconds())

			if next.OnRefresh != nil {
				next.OnRefresh(ctx, refreshed, duration)
			}
		},
	}
}
