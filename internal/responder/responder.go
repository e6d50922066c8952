// Package responder maps a classified intent to the reply text.
package responder

import (
	"context"
	"strings"

	"github.com/lewisedginton/whatsapp_router/internal/completion"
	"github.com/lewisedginton/whatsapp_router/internal/intent"
	"github.com/lewisedginton/whatsapp_router/pkg/logger"
	"github.com/lewisedginton/whatsapp_router/pkg/metrics"
)

// Source records where a reply came from.
type Source string

const (
	SourceCanned     Source = "canned"
	SourceCompletion Source = "completion"
	SourceApology    Source = "apology"
)

// OutboundResponse is one text reply addressed to a sender.
type OutboundResponse struct {
	To     string
	Text   string
	Intent intent.Intent
	Source Source
}

// Config selects between the static and AI assisted reply sets.
type Config struct {
	AIFallbackEnabled bool
	SystemPrompt      string
	MaxOutputTokens   int
	FormURL           string
}

// Responder routes intents to replies. Route never fails.
type Responder struct {
	cfg       Config
	completer completion.Completer
	metrics   *metrics.Metrics
	log       logger.Logger
}

// New builds a Responder. completer and m may be nil.
func New(cfg Config, completer completion.Completer, m *metrics.Metrics, log logger.Logger) *Responder {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if cfg.FormURL == "" {
		cfg.FormURL = DefaultFormURL
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	if cfg.AIFallbackEnabled && completer == nil {
		log.Warn("AI fallback enabled without a completion backend, static replies will be used")
	}
	return &Responder{cfg: cfg, completer: completer, metrics: m, log: log}
}

func (r *Responder) aiEnabled() bool {
	return r.cfg.AIFallbackEnabled && r.completer != nil
}

// Route returns the reply for in. rawText is the normalized message text and
// is only read as the completion prompt.
func (r *Responder) Route(ctx context.Context, in intent.Intent, rawText, senderID string) OutboundResponse {
	out := OutboundResponse{To: senderID, Intent: in, Source: SourceCanned}

	switch in {
	case intent.Greeting:
		out.Text = MenuText
	case intent.Option1:
		if r.aiEnabled() {
			out.Text = Option1InfoText
		} else {
			out.Text = Option1FormText(r.cfg.FormURL)
		}
	case intent.Option2:
		if r.aiEnabled() {
			out.Text = Option2InfoText
		} else {
			out.Text = Option2FormText(r.cfg.FormURL)
		}
	case intent.Option3:
		out.Text = AdvisorText
	default:
		if !r.aiEnabled() {
			out.Text = FallbackText
			break
		}
		out.Text, out.Source = r.complete(ctx, rawText, senderID)
	}
	return out
}

func (r *Responder) complete(ctx context.Context, rawText, senderID string) (string, Source) {
	reply, err := r.completer.Complete(ctx, r.cfg.SystemPrompt, rawText, r.cfg.MaxOutputTokens)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = completion.Wrap("unknown", completion.ErrEmptyCompletion)
	}
	if r.metrics != nil {
		r.metrics.ObserveCompletion(err == nil)
	}
	if err != nil {
		logger.GetLoggerFromContext(ctx, r.log).Warn("Completion fallback failed, sending apology",
			logger.SenderField(senderID),
			logger.StringField("kind", completion.KindOf(err).String()),
			logger.ErrorField(err))
		return ApologyText, SourceApology
	}
	return reply, SourceCompletion
}
