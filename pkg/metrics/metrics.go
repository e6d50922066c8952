// Package metrics provides Prometheus metrics for the webhook server and the message pipeline.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/lewisedginton/whatsapp_router/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "whatsapp_router"

// Delivery and completion result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

// Metrics owns a private Prometheus registry and the collectors registered on it.
type Metrics struct {
	reg *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration prometheus.Histogram

	MessagesReceived  prometheus.Counter
	MessagesIgnored   prometheus.Counter
	MessagesDropped   prometheus.Counter
	MessagesThrottled prometheus.Counter
	Intents           *prometheus.CounterVec
	Deliveries        *prometheus.CounterVec
	Completions       *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec

	server *http.Server
	log    logger.Logger
}

// NewMetrics creates the pipeline collectors. HTTP collectors are only
// registered when httpCounters is set.
func NewMetrics(httpCounters bool, l logger.Logger) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		log: l,
	}

	if httpCounters {
		m.HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_responses_total",
			Help:      "HTTP responses returned, by status code",
		}, []string{"code"})
		m.HTTPDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1.0, 3.0, 5.0, 10.0, 30.0},
		})
		m.reg.MustRegister(m.HTTPRequests, m.HTTPDuration)
	}

	m.MessagesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_received_total",
		Help:      "Webhook notifications that normalized into an inbound message",
	})
	m.MessagesIgnored = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_ignored_total",
		Help:      "Webhook notifications without a routable message",
	})
	m.MessagesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_dropped_total",
		Help:      "Extra messages in a batch that were not processed",
	})
	m.MessagesThrottled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_throttled_total",
		Help:      "Webhook notifications acknowledged but dropped by the rate limiter",
	})
	m.Intents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "intents_total",
		Help:      "Classified intents",
	}, []string{"intent"})
	m.Deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_total",
		Help:      "Outbound message sends by result",
	}, []string{"result"})
	m.Completions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "completions_total",
		Help:      "Completion fallback calls by result",
	}, []string{"result"})
	m.EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Activity events published by result",
	}, []string{"result"})

	m.reg.MustRegister(
		m.MessagesReceived,
		m.MessagesIgnored,
		m.MessagesDropped,
		m.MessagesThrottled,
		m.Intents,
		m.Deliveries,
		m.Completions,
		m.EventsPublished,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// AddCustomMetric registers an additional collector.
func (m *Metrics) AddCustomMetric(c prometheus.Collector) {
	m.reg.MustRegister(c)
}

// Handler returns the /metrics handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Listen starts the metrics HTTP server on the given port. Serve errors other
// than a clean shutdown are sent on the returned channel.
func (m *Metrics) Listen(port int) chan error {
	m.log.Info("Starting metrics listener", logger.IntField("port", port))
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	m.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics listener: %w", err)
		}
	}()
	return errChan
}

// Shutdown stops the metrics listener if it was started.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	m.log.Info("Stopping metrics listener")
	return m.server.Shutdown(ctx)
}

// ObserveIntent counts a classified intent.
func (m *Metrics) ObserveIntent(intent fmt.Stringer) {
	m.Intents.WithLabelValues(intent.String()).Inc()
}

// ObserveDelivery counts an outbound send.
func (m *Metrics) ObserveDelivery(ok bool) {
	m.Deliveries.WithLabelValues(resultLabel(ok)).Inc()
}

// ObserveCompletion counts a completion call.
func (m *Metrics) ObserveCompletion(ok bool) {
	m.Completions.WithLabelValues(resultLabel(ok)).Inc()
}

// ObserveEvent counts a publish attempt.
func (m *Metrics) ObserveEvent(ok bool) {
	m.EventsPublished.WithLabelValues(resultLabel(ok)).Inc()
}

func resultLabel(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}

// HTTPMiddleware returns a chi compatible middleware recording response codes and latency.
// It is a no-op when HTTP counters are disabled.
func (m *Metrics) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m.HTTPRequests == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.HTTPDuration.Observe(time.Since(start).Seconds())
			m.HTTPRequests.WithLabelValues(strconv.Itoa(status)).Inc()
		})
	}
}
