// Package pipeline wires normalization, classification, state, routing and
// delivery for a single webhook notification.
package pipeline

import (
	"context"
	"strings"

	"github.com/lewisedginton/whatsapp_router/internal/conversation"
	"github.com/lewisedginton/whatsapp_router/internal/delivery"
	"github.com/lewisedginton/whatsapp_router/internal/events"
	"github.com/lewisedginton/whatsapp_router/internal/intent"
	"github.com/lewisedginton/whatsapp_router/internal/responder"
	"github.com/lewisedginton/whatsapp_router/internal/webhook"
	"github.com/lewisedginton/whatsapp_router/pkg/logger"
	"github.com/lewisedginton/whatsapp_router/pkg/metrics"
)

// Router picks the reply for an intent.
type Router interface {
	Route(ctx context.Context, in intent.Intent, rawText, senderID string) responder.OutboundResponse
}

// Dispatcher sends a reply.
type Dispatcher interface {
	Dispatch(ctx context.Context, resp responder.OutboundResponse) delivery.Result
}

// Outcome summarizes one processed notification.
type Outcome struct {
	Event    webhook.InboundEvent
	Intent   intent.Intent
	State    conversation.State
	Response responder.OutboundResponse
	Delivery delivery.Result
}

// Pipeline processes webhook bodies. It is safe for concurrent use when its
// collaborators are.
type Pipeline struct {
	store      conversation.Store
	router     Router
	dispatcher Dispatcher
	feed       *events.Feed
	metrics    *metrics.Metrics
	log        logger.Logger
}

// Deps collects the pipeline collaborators. Feed and Metrics are optional.
type Deps struct {
	Store      conversation.Store
	Router     Router
	Dispatcher Dispatcher
	Feed       *events.Feed
	Metrics    *metrics.Metrics
	Logger     logger.Logger
}

// New builds a Pipeline.
func New(d Deps) *Pipeline {
	if d.Logger == nil {
		d.Logger = logger.NewNopLogger()
	}
	return &Pipeline{
		store:      d.Store,
		router:     d.Router,
		dispatcher: d.Dispatcher,
		feed:       d.Feed,
		metrics:    d.Metrics,
		log:        d.Logger,
	}
}

// Process handles one webhook body. It returns false, having sent nothing,
// when the body carries no routable message; otherwise exactly one reply
// has been dispatched.
func (p *Pipeline) Process(ctx context.Context, payload []byte) (Outcome, bool) {
	ctx, _ = logger.EnsureCorrelationID(ctx)
	log := logger.GetLoggerFromContext(ctx, p.log)

	event, ok := webhook.Normalize(payload)
	if !ok {
		if p.metrics != nil {
			p.metrics.MessagesIgnored.Inc()
		}
		log.Debug("Notification without a routable message ignored", logger.IntField("body_bytes", len(payload)))
		return Outcome{}, false
	}

	in := intent.Classify(event.Text)
	log = log.WithFields(
		logger.SenderField(event.SenderID),
		logger.MessageIDField(event.MessageID),
		logger.IntentField(in),
	)

	if p.metrics != nil {
		p.metrics.MessagesReceived.Inc()
		p.metrics.ObserveIntent(in)
		if event.Dropped > 0 {
			p.metrics.MessagesDropped.Add(float64(event.Dropped))
		}
	}
	if event.Dropped > 0 {
		log.Warn("Batched notification, only the first message is handled", logger.IntField("dropped", event.Dropped))
	}

	state := p.store.Touch(event.SenderID)
	log.Info("Inbound message classified",
		logger.StringField("type", event.Type),
		logger.IntField("sender_messages", state.Messages))

	p.feed.Inbound(ctx, events.InboundData{
		SenderID:  event.SenderID,
		MessageID: event.MessageID,
		Type:      event.Type,
		Text:      event.Text,
		RawText:   event.RawText,
		Intent:    in.String(),
		Dropped:   event.Dropped,
	})

	// Classification works on the folded text; the completion backend gets
	// what the user typed.
	resp := p.router.Route(ctx, in, strings.TrimSpace(event.RawText), event.SenderID)
	res := p.dispatcher.Dispatch(ctx, resp)

	return Outcome{
		Event:    event,
		Intent:   in,
		State:    state,
		Response: resp,
		Delivery: res,
	}, true
}
