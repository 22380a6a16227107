package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several instances can live in one test
// binary.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	joinsTotal        *prometheus.CounterVec
	invitesIssued     prometheus.Counter
	deletionsTotal    *prometheus.CounterVec
	mediaDeletedTotal prometheus.Counter
}

func New(prefix string) *Metrics {
	if prefix == "" {
		prefix = "dondog"
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		joinsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_room_joins_total",
				Help: "Room join attempts by outcome",
			},
			[]string{"outcome"},
		),
		invitesIssued: factory.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_invite_codes_issued_total",
				Help: "Invite codes persisted",
			},
		),
		deletionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_account_deletions_total",
				Help: "Account deletion runs by outcome",
			},
			[]string{"outcome"},
		),
		mediaDeletedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_media_objects_deleted_total",
				Help: "Blob store objects removed during room teardown",
			},
		),
	}
}

func (m *Metrics) ObserveJoin(outcome string) {
	m.joinsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveInviteIssued() {
	m.invitesIssued.Inc()
}

func (m *Metrics) ObserveDeletion(outcome string) {
	m.deletionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddMediaDeleted(count int) {
	if count > 0 {
		m.mediaDeletedTotal.Add(float64(count))
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count and latency labelled by the chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := []string{r.Method, route, strconv.Itoa(status)}
		m.httpRequestsTotal.WithLabelValues(labels...).Inc()
		m.httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	})
}
