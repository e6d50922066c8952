package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lewisedginton/whatsapp_router/pkg/logger"
)

// GuardConfig configures Guard.
type GuardConfig struct {
	Provider string
	// Timeout bounds each call. Zero disables the bound.
	Timeout time.Duration
	// Breaker is optional.
	Breaker *Breaker
	Logger  logger.Logger
}

// Guarded wraps a Completer with a per call timeout, a circuit breaker and
// uniform *Error results.
type Guarded struct {
	inner Completer
	cfg   GuardConfig
	log   logger.Logger
}

// Guard wraps inner.
func Guard(inner Completer, cfg GuardConfig) *Guarded {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Guarded{
		inner: inner,
		cfg:   cfg,
		log:   log.WithFields(logger.ProviderField(cfg.Provider)),
	}
}

// Breaker exposes the breaker for health reporting. It may be nil.
func (g *Guarded) Breaker() *Breaker {
	return g.cfg.Breaker
}

// Complete implements Completer. Blank replies are reported as KindEmpty.
func (g *Guarded) Complete(ctx context.Context, systemPrompt, userText string, maxTokens int) (string, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	var reply string
	call := func() error {
		out, err := g.inner.Complete(ctx, systemPrompt, userText, maxTokens)
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) == "" {
			return ErrEmptyCompletion
		}
		reply = out
		return nil
	}

	start := time.Now()
	var err error
	if g.cfg.Breaker != nil {
		err = g.cfg.Breaker.Call(call)
	} else {
		err = call()
	}

	log := logger.GetLoggerFromContext(ctx, g.log)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		err = Wrap(g.cfg.Provider, err)
		if errors.Is(err, ErrCircuitOpen) {
			log.Debug("Completion skipped, breaker open")
		} else {
			log.Warn("Completion failed",
				logger.StringField("kind", KindOf(err).String()),
				logger.DurationField("duration", time.Since(start)),
				logger.ErrorField(err))
		}
		return "", err
	}

	log.Debug("Completion succeeded",
		logger.DurationField("duration", time.Since(start)),
		logger.IntField("reply_chars", len(reply)))
	return reply, nil
}
