// Package provider defines the external auth capability the reset flow is
// written against. Any conforming backend works; this repo ships a local
// implementation and a thin REST adapter for a remote one.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/fitfuel/fitfuel-api/internal/domain"
)

// AuthProvider is the full capability surface the reset flow consumes.
type AuthProvider interface {
	// SendRecoveryCode dispatches a one-time code to the address out of band.
	// redirectTarget is embedded in the email so cross-client links land on
	// the right screen; providers may ignore it.
	SendRecoveryCode(ctx context.Context, email, redirectTarget string) error

	// VerifyRecoveryCode redeems a code and mints a recovery session.
	VerifyRecoveryCode(ctx context.Context, email, code string) (*domain.RecoverySession, error)

	// EstablishSession rebuilds a session from a stored token pair.
	EstablishSession(ctx context.Context, accessToken, refreshToken string) (*domain.RecoverySession, error)

	// CurrentSession returns the live session, or nil when there is none.
	CurrentSession(ctx context.Context) (*domain.RecoverySession, error)

	// UpdatePassword changes the password of the session's user.
	UpdatePassword(ctx context.Context, newPassword string) error

	// SignOut revokes every session belonging to the current user.
	SignOut(ctx context.Context) error
}

// Kind classifies a provider failure. The flow branches on kinds, never on
// message text, so upstream wording changes cannot break classification.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindRateLimited
	KindCodeExpired
	KindCodeInvalid
	KindTokenExpired
	KindTokenInvalid
	KindForbidden
	KindSessionMissing
	KindWeakPassword
	KindSamePassword
	KindUnavailable
)

var kindNames = map[Kind]string{
	KindUnknown:        "unknown",
	KindNotFound:       "not_found",
	KindRateLimited:    "rate_limited",
	KindCodeExpired:    "code_expired",
	KindCodeInvalid:    "code_invalid",
	KindTokenExpired:   "token_expired",
	KindTokenInvalid:   "token_invalid",
	KindForbidden:      "forbidden",
	KindSessionMissing: "session_missing",
	KindWeakPassword:   "weak_password",
	KindSamePassword:   "same_password",
	KindUnavailable:    "unavailable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error is a classified provider failure. Message carries the provider's
// own wording for diagnostics; it is never shown to end users directly.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("auth provider: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("auth provider: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// Errf builds a classified error with a formatted diagnostic message.
func Errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error without losing it.
func Wrap(kind Kind, cause error) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// KindOf extracts the kind from any error. Plain errors classify as unknown.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
