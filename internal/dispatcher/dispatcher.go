// Package dispatcher delivers routed replies and records the outcome.
package dispatcher

import (
	"context"

	"github.com/lewisedginton/whatsapp_router/internal/delivery"
	"github.com/lewisedginton/whatsapp_router/internal/events"
	"github.com/lewisedginton/whatsapp_router/internal/responder"
	"github.com/lewisedginton/whatsapp_router/pkg/logger"
	"github.com/lewisedginton/whatsapp_router/pkg/metrics"
)

// Dispatcher performs exactly one send per response.
type Dispatcher struct {
	sender  delivery.Sender
	feed    *events.Feed
	metrics *metrics.Metrics
	log     logger.Logger
}

// New builds a Dispatcher. feed and m may be nil.
func New(sender delivery.Sender, feed *events.Feed, m *metrics.Metrics, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Dispatcher{sender: sender, feed: feed, metrics: m, log: log}
}

// Dispatch sends resp and returns the delivery result. Failures are logged
// and counted, never returned as errors.
func (d *Dispatcher) Dispatch(ctx context.Context, resp responder.OutboundResponse) delivery.Result {
	res := d.sender.Send(ctx, resp.To, resp.Text)
	if res.Err == nil && !res.OK {
		res.Err = delivery.ErrRejected
	}

	if d.metrics != nil {
		d.metrics.ObserveDelivery(res.OK)
	}

	log := logger.GetLoggerFromContext(ctx, d.log).WithFields(
		logger.SenderField(resp.To),
		logger.IntentField(resp.Intent),
		logger.StringField("source", string(resp.Source)),
	)
	if res.OK {
		log.Info("Reply delivered",
			logger.MessageIDField(res.MessageID),
			logger.HTTPStatusField(res.StatusCode))
	} else {
		log.Error("Reply delivery failed",
			logger.HTTPStatusField(res.StatusCode),
			logger.StringField("response_body", res.Body),
			logger.ErrorField(res.Err))
	}

	out := events.OutboundData{
		To:         resp.To,
		Text:       resp.Text,
		Source:     string(resp.Source),
		OK:         res.OK,
		StatusCode: res.StatusCode,
		MessageID:  res.MessageID,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	d.feed.Outbound(ctx, out)

	return res
}
