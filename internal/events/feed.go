package events

import (
	"context"
	"time"

	"github.com/lewisedginton/whatsapp_router/pkg/logger"
	"github.com/lewisedginton/whatsapp_router/pkg/metrics"
)

// DefaultPublishTimeout bounds how long a single publish may hold up the
// webhook that triggered it.
const DefaultPublishTimeout = 2 * time.Second

// Feed publishes the router's activity events on a best effort basis.
// Publish failures are logged and counted, never returned.
type Feed struct {
	pub      Publisher
	producer string
	metrics  *metrics.Metrics
	log      logger.Logger
	enabled  bool
	timeout  time.Duration
}

// FeedOption configures a Feed.
type FeedOption func(*Feed)

// WithPublishTimeout overrides DefaultPublishTimeout. Non-positive values are ignored.
func WithPublishTimeout(d time.Duration) FeedOption {
	return func(f *Feed) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// NewFeed wraps pub. A nil pub disables the feed.
func NewFeed(pub Publisher, producer string, m *metrics.Metrics, log logger.Logger, opts ...FeedOption) *Feed {
	if log == nil {
		log = logger.NewNopLogger()
	}
	f := &Feed{pub: pub, producer: producer, metrics: m, log: log, enabled: pub != nil, timeout: DefaultPublishTimeout}
	for _, opt := range opts {
		opt(f)
	}
	if pub == nil {
		f.pub = NopPublisher{}
	}
	if _, nop := f.pub.(NopPublisher); nop {
		f.enabled = false
	}
	return f
}

// Inbound emits a whatsapp.inbound.v1 event.
func (f *Feed) Inbound(ctx context.Context, data InboundData) {
	f.emit(ctx, KeyInbound, data)
}

// Outbound emits a whatsapp.outbound.v1 event.
func (f *Feed) Outbound(ctx context.Context, data OutboundData) {
	f.emit(ctx, KeyOutbound, data)
}

func (f *Feed) emit(ctx context.Context, key string, data any) {
	if f == nil || !f.enabled {
		return
	}
	env := NewEnvelope(ctx, key, f.producer, data)

	// Detached from request cancellation, but never longer than f.timeout.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()

	start := time.Now()
	err := f.pub.Publish(pubCtx, key, env)
	if f.metrics != nil {
		f.metrics.ObserveEvent(err == nil)
	}
	if err != nil {
		logger.GetLoggerFromContext(ctx, f.log).Warn("Failed to publish event",
			logger.StringField("key", key),
			logger.DurationField("elapsed", time.Since(start)),
			logger.ErrorField(err))
	}
}
