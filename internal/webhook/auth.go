// Package webhook implements the WhatsApp Cloud API webhook: the subscription
// handshake, payload normalization, signature checks and the HTTP handlers.
package webhook

import (
	"crypto/subtle"
	"errors"
)

// ModeSubscribe is the only hub.mode accepted by the handshake.
const ModeSubscribe = "subscribe"

// AuthError reports a failed webhook handshake.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "webhook verification failed: " + e.Reason
}

// ErrVerificationFailed matches any handshake failure with errors.Is.
var ErrVerificationFailed = &AuthError{Reason: "mode or token mismatch"}

// Is lets errors.Is match every *AuthError against ErrVerificationFailed.
func (e *AuthError) Is(target error) bool {
	_, ok := target.(*AuthError)
	return ok
}

// Verify answers Meta's subscription handshake. It returns challenge verbatim
// when mode is "subscribe" and token equals expected exactly. An empty expected
// token never verifies.
func Verify(mode, token, challenge, expected string) (string, error) {
	if mode != ModeSubscribe {
		return "", &AuthError{Reason: "unexpected hub.mode"}
	}
	if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return "", &AuthError{Reason: "verify token mismatch"}
	}
	return challenge, nil
}

// IsAuthError reports whether err is a handshake failure.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
