// Package completion defines the text completion contract used for free text
// fallback replies, plus the timeout and circuit breaker guard around it.
package completion

import (
	"context"
	"errors"
	"fmt"
)

// Completer produces a single reply for userText under systemPrompt.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userText string, maxTokens int) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, systemPrompt, userText string, maxTokens int) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, systemPrompt, userText string, maxTokens int) (string, error) {
	return f(ctx, systemPrompt, userText, maxTokens)
}

// Kind classifies a completion failure.
type Kind int

const (
	KindUpstream Kind = iota
	KindTimeout
	KindEmpty
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindEmpty:
		return "empty"
	case KindUnavailable:
		return "unavailable"
	default:
		return "upstream"
	}
}

// Error is returned by every Completer in this repository.
type Error struct {
	Provider string
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s completion %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s completion %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	// ErrEmptyCompletion is wrapped when a provider answers with no text.
	ErrEmptyCompletion = errors.New("empty completion")
	// ErrCircuitOpen is wrapped when the breaker short circuits a call.
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// Wrap turns err into an *Error for provider, deriving Kind from the chain.
// Existing *Error values are returned unchanged.
func Wrap(provider string, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}

	kind := KindUpstream
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, ErrEmptyCompletion):
		kind = KindEmpty
	case errors.Is(err, ErrCircuitOpen):
		kind = KindUnavailable
	}
	return &Error{Provider: provider, Kind: kind, Err: err}
}

// KindOf reports the Kind of err, or KindUpstream for foreign errors.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUpstream
}
