package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/whatsapp_router/internal/delivery"
	"github.com/lewisedginton/whatsapp_router/internal/events"
	"github.com/lewisedginton/whatsapp_router/internal/intent"
	"github.com/lewisedginton/whatsapp_router/internal/responder"
	"github.com/lewisedginton/whatsapp_router/pkg/logger"
	"github.com/lewisedginton/whatsapp_router/pkg/metrics"
)

type sentMessage struct{ to, text string }

type fakeSender struct {
	mu     sync.Mutex
	sent   []sentMessage
	result delivery.Result
}

func (f *fakeSender) Send(_ context.Context, to, text string) delivery.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{to: to, text: text})
	return f.result
}

type fakePublisher struct {
	keys []string
	data []any
}

func (f *fakePublisher) Publish(_ context.Context, key string, msg events.Envelope) error {
	f.keys = append(f.keys, key)
	f.data = append(f.data, msg.Data)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func setupTestDispatcher(result delivery.Result) (*Dispatcher, *fakeSender, *fakePublisher, *metrics.Metrics) {
	sender := &fakeSender{result: result}
	pub := &fakePublisher{}
	m := metrics.NewMetrics(false, logger.NewNopLogger())
	feed := events.NewFeed(pub, "test", m, nil)
	return New(sender, feed, m, logger.NewNopLogger()), sender, pub, m
}

func TestDispatch_Success(t *testing.T) {
	d, sender, pub, m := setupTestDispatcher(delivery.Result{OK: true, StatusCode: 200, MessageID: "wamid.OUT"})

	res := d.Dispatch(context.Background(), responder.OutboundResponse{
		To: "111", Text: responder.MenuText, Intent: intent.Greeting, Source: responder.SourceCanned,
	})

	assert.True(t, res.OK)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, sentMessage{to: "111", text: responder.MenuText}, sender.sent[0])
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Deliveries.WithLabelValues(metrics.ResultSuccess)))

	require.Equal(t, []string{events.KeyOutbound}, pub.keys)
	out := pub.data[0].(events.OutboundData)
	assert.True(t, out.OK)
	assert.Equal(t, "wamid.OUT", out.MessageID)
	assert.Empty(t, out.Error)
}

func TestDispatch_FailureIsNotAnError(t *testing.T) {
	d, sender, pub, m := setupTestDispatcher(delivery.Result{
		StatusCode: 401,
		Body:       `{"error":{"code":190}}`,
		Err:        errors.New("graph api rejected message: status 401"),
	})

	res := d.Dispatch(context.Background(), responder.OutboundResponse{To: "111", Text: "hola", Intent: intent.FreeText})

	assert.False(t, res.OK)
	assert.Equal(t, 401, res.StatusCode)
	assert.Len(t, sender.sent, 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Deliveries.WithLabelValues(metrics.ResultFailure)))

	out := pub.data[0].(events.OutboundData)
	assert.False(t, out.OK)
	assert.Contains(t, out.Error, "401")
}

func TestDispatch_NotOKWithoutError(t *testing.T) {
	d, _, _, _ := setupTestDispatcher(delivery.Result{StatusCode: 500})

	res := d.Dispatch(context.Background(), responder.OutboundResponse{To: "111", Text: "hola"})
	assert.ErrorIs(t, res.Err, delivery.ErrRejected)
}

func TestDispatch_WithoutFeed(t *testing.T) {
	sender := &fakeSender{result: delivery.Result{OK: true}}
	d := New(sender, nil, nil, nil)

	res := d.Dispatch(context.Background(), responder.OutboundResponse{To: "111", Text: "hola"})
	assert.True(t, res.OK)
	assert.Len(t, sender.sent, 1)
}
