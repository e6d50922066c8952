// Package events publishes the router's activity feed to a RabbitMQ topic
// exchange.
package events

import (
	"context"
	"time"

	"github.com/lewisedginton/whatsapp_router/pkg/logger"
	"github.com/lewisedginton/whatsapp_router/pkg/prefixed_uuid"
	"github.com/lewisedginton/whatsapp_router/pkg/utils"
)

// Routing keys, also used as the event type.
const (
	KeyInbound  = "whatsapp.inbound.v1"
	KeyOutbound = "whatsapp.outbound.v1"
)

// IDPrefix tags every event ID.
const IDPrefix = "evt"

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

type Meta struct {
	// Request correlation ID
	CorrelationID *string `json:"correlation_id,omitempty"`
	// Unique event ID
	ID prefixed_uuid.PrefixedUUID `json:"id"`
	// Emitting service
	Producer *string `json:"producer,omitempty"`
	// Timestamp when the event was emitted
	Time time.Time `json:"time"`
	// Event name and version, e.g. whatsapp.inbound.v1
	Type string `json:"type"`
}

// InboundData describes one normalized inbound message.
type InboundData struct {
	SenderID  string `json:"sender_id"`
	MessageID string `json:"message_id,omitempty"`
	Type      string `json:"type,omitempty"`
	Text      string `json:"text"`
	RawText   string `json:"raw_text"`
	Intent    string `json:"intent"`
	Dropped   int    `json:"dropped"`
}

// OutboundData describes one delivery attempt.
type OutboundData struct {
	To         string `json:"to"`
	Text       string `json:"text"`
	Source     string `json:"source"`
	OK         bool   `json:"ok"`
	StatusCode int    `json:"status_code"`
	MessageID  string `json:"message_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewEnvelope stamps data with a fresh ID and the correlation ID carried by ctx.
func NewEnvelope(ctx context.Context, eventType, producer string, data any) Envelope {
	return Envelope{
		Meta: Meta{
			CorrelationID: utils.NilIfEmpty(logger.GetCorrelationIDFromContext(ctx)),
			ID:            prefixed_uuid.New(IDPrefix),
			Producer:      utils.NilIfEmpty(producer),
			Time:          time.Now().UTC(),
			Type:          eventType,
		},
		Data: data,
	}
}
