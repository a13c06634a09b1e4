// Package metrics exposes Prometheus collectors for the API.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const namespace = "pature"

// Metrics records RPC traffic and domain outcomes. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	rpcTotal    *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec

	sessionsIssued  prometheus.Counter
	sessionsRevoked *prometheus.CounterVec
	reactions       *prometheus.CounterVec
	matchesCreated  prometheus.Counter
	rateLimited     prometheus.Counter
}

// New builds the collectors on a private registry together with the Go
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		rpcTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "Handled gRPC requests by method and status code.",
		}, []string{"method", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_request_duration_seconds",
			Help:      "gRPC handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		sessionsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_issued_total",
			Help:      "Refresh-token sessions created by login or rotation.",
		}),
		sessionsRevoked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_revoked_total",
			Help:      "Sessions revoked, by reason.",
		}, []string{"reason"}),
		reactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reactions_total",
			Help:      "Recorded reactions by result.",
		}, []string{"result"}),
		matchesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_created_total",
			Help:      "New mutual matches.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the IP rate limiter.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rpcTotal, m.rpcDuration,
		m.sessionsIssued, m.sessionsRevoked,
		m.reactions, m.matchesCreated, m.rateLimited,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// UnaryServerInterceptor counts and times every unary call.
func (m *Metrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if m != nil {
			m.rpcDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
			m.rpcTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		}
		return resp, err
	}
}

func (m *Metrics) SessionIssued() {
	if m == nil {
		return
	}
	m.sessionsIssued.Inc()
}

func (m *Metrics) SessionsRevoked(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsRevoked.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) ReactionRecorded(result string) {
	if m == nil {
		return
	}
	m.reactions.WithLabelValues(result).Inc()
}

func (m *Metrics) MatchCreated() {
	if m == nil {
		return
	}
	m.matchesCreated.Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}
