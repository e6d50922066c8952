package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lewisedginton/whatsapp_router/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type label string

func (l label) String() string { return string(l) }

func TestPipelineCounters(t *testing.T) {
	m := NewMetrics(false, logger.NewNopLogger())

	m.MessagesReceived.Inc()
	m.MessagesReceived.Inc()
	m.MessagesIgnored.Inc()
	m.ObserveIntent(label("GREETING"))
	m.ObserveIntent(label("GREETING"))
	m.ObserveIntent(label("FREE_TEXT"))
	m.ObserveDelivery(true)
	m.ObserveDelivery(false)
	m.ObserveCompletion(false)
	m.ObserveEvent(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesIgnored))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Intents.WithLabelValues("GREETING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Intents.WithLabelValues("FREE_TEXT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues(ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Completions.WithLabelValues(ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues(ResultSuccess)))
}

func TestHTTPMiddleware(t *testing.T) {
	m := NewMetrics(true, logger.NewNopLogger())

	handler := m.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for i := 0; i < 3; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/webhook", nil))
	}
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPDuration))
}

func TestHTTPMiddlewareDisabled(t *testing.T) {
	m := NewMetrics(false, logger.NewNopLogger())
	called := false
	handler := m.HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, called)
	assert.Nil(t, m.HTTPRequests)
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := NewMetrics(false, logger.NewNopLogger())
	m.MessagesDropped.Add(4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "whatsapp_router_messages_dropped_total 4"), body)
}
