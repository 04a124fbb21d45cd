package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fitfuel/fitfuel-api/internal/domain"
	"github.com/fitfuel/fitfuel-api/internal/provider"
	"github.com/fitfuel/fitfuel-api/internal/repository/ports"
)

// TokenStoreKey is the fixed namespace the flow writes its bundle under.
const TokenStoreKey = "fitfuel.reset.tokens"

const expiryWarningWindow = 5 * time.Minute

var (
	flowEmailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	otpCodeRe   = regexp.MustCompile(`^\d{6}$`)

	// Fallbacks for redirect URLs that neither fragment nor query parsing
	// understands; provider redirect formats have drifted across versions.
	accessTokenRe  = regexp.MustCompile(`access_token=([^&\s#]+)`)
	refreshTokenRe = regexp.MustCompile(`refresh_token=([^&\s#]+)`)
	tokenTypeRe    = regexp.MustCompile(`(?:^|[?&#])type=([^&\s#]+)`)
)

// PasswordPolicy validates a candidate password before any provider call.
// Injected so the flow and the shared validator stay decoupled while still
// enforcing one policy.
type PasswordPolicy func(password string) error

// FlowConfig tunes a ResetFlow. Zero values get sensible defaults.
type FlowConfig struct {
	// RedirectTarget is the base URL embedded in the recovery email.
	RedirectTarget string
	// ConfirmDelay is how long the verify step shows its confirmation
	// before the client should move to the password screen.
	ConfirmDelay time.Duration
	// CompleteDelay is how long the completed screen lingers before the
	// client should redirect to login.
	CompleteDelay time.Duration
	// CompletedTTL closes the flow this long after completion.
	CompletedTTL time.Duration

	Policy PasswordPolicy
	Now    func() time.Time
}

// ResetFlow drives one password-reset attempt through its three steps.
// A flow belongs to a single client; methods serialize on an internal mutex
// so a misbehaving client cannot race the token bundle.
type ResetFlow struct {
	auth   provider.AuthProvider
	tokens ports.TokenStore

	redirectTarget string
	confirmDelay   time.Duration
	completeDelay  time.Duration
	completedTTL   time.Duration
	policy         PasswordPolicy
	now            func() time.Time

	mu          sync.Mutex
	state       domain.FlowState
	email       string
	callbackURL string
	warning     string
	closed      bool
	expireTimer *time.Timer
}

// NewResetFlow builds a flow in the AwaitingEmail state.
func NewResetFlow(auth provider.AuthProvider, tokens ports.TokenStore, cfg FlowConfig) *ResetFlow {
	if cfg.ConfirmDelay <= 0 {
		cfg.ConfirmDelay = 2 * time.Second
	}
	if cfg.CompleteDelay <= 0 {
		cfg.CompleteDelay = 3 * time.Second
	}
	if cfg.CompletedTTL <= 0 {
		cfg.CompletedTTL = 10 * time.Minute
	}
	if cfg.Policy == nil {
		cfg.Policy = defaultPasswordPolicy
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ResetFlow{
		auth:           auth,
		tokens:         tokens,
		redirectTarget: cfg.RedirectTarget,
		confirmDelay:   cfg.ConfirmDelay,
		completeDelay:  cfg.CompleteDelay,
		completedTTL:   cfg.CompletedTTL,
		policy:         cfg.Policy,
		now:            cfg.Now,
		state:          domain.FlowAwaitingEmail,
	}
}

// defaultPasswordPolicy is the single minimum-length-plus-composition rule.
// The looser length-6 rule that used to live inline on the password screen
// is gone on purpose.
func defaultPasswordPolicy(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooWeak
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		}
	}
	if !hasLetter || !hasDigit {
		return ErrPasswordTooWeak
	}
	return nil
}

// State returns the flow's current position.
func (f *ResetFlow) State() domain.FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Email returns the address the flow was started for.
func (f *ResetFlow) Email() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.email
}

// Warning returns the non-fatal notice from token validation, if any.
func (f *ResetFlow) Warning() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.warning
}

// ConfirmDelay is the pause the verify step asks the client to observe.
func (f *ResetFlow) ConfirmDelay() time.Duration { return f.confirmDelay }

// CompleteDelay is the pause before the client redirects to login.
func (f *ResetFlow) CompleteDelay() time.Duration { return f.completeDelay }

// SetCallbackURL records the URL the client landed on so token discovery
// can mine it for provider-embedded credentials.
func (f *ResetFlow) SetCallbackURL(raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbackURL = raw
}

// Close stops the completed-flow timer and marks the flow unusable. Safe to
// call at any time, including before completion.
func (f *ResetFlow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.expireTimer != nil {
		f.expireTimer.Stop()
		f.expireTimer = nil
	}
}

// RequestReset starts the flow: format-check the address, ask the provider
// to dispatch a code, move to OTPSent.
//
// Enumeration policy: every well-formed request gets the same outcome.
// A provider "user not found" is treated exactly like success so neither
// the message nor the resulting state reveals whether the account exists.
func (f *ResetFlow) RequestReset(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFlowClosed
	}
	if f.state != domain.FlowAwaitingEmail {
		return ErrFlowState
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if !flowEmailRe.MatchString(email) {
		// Fast fail: no provider round trip for malformed input.
		return ErrInvalidEmail
	}

	if err := f.auth.SendRecoveryCode(ctx, email, f.recoveryTarget(email)); err != nil {
		switch provider.KindOf(err) {
		case provider.KindNotFound:
			// Indistinguishable from success by design.
		case provider.KindRateLimited:
			return ErrTooManyRequests
		default:
			return errors.Join(ErrProviderUnavailable, err)
		}
	}

	f.email = email
	f.state = domain.FlowOTPSent
	return nil
}

// Resend re-dispatches the code for the already-started flow. It never
// touches verification state.
func (f *ResetFlow) Resend(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFlowClosed
	}
	if f.state != domain.FlowOTPSent && f.state != domain.FlowVerifying {
		return ErrFlowState
	}
	if f.email == "" {
		return ErrEmailMissing
	}

	if err := f.auth.SendRecoveryCode(ctx, f.email, f.recoveryTarget(f.email)); err != nil {
		switch provider.KindOf(err) {
		case provider.KindNotFound:
			// Same policy as RequestReset.
		case provider.KindRateLimited:
			return ErrTooManyRequests
		default:
			return errors.Join(ErrProviderUnavailable, err)
		}
	}
	return nil
}

// VerifyOTP redeems the emailed code. On success the session bundle is
// written to the ephemeral store and the flow moves to PasswordSetup.
// The recovery session is deliberately left signed in: destroying it here
// would burn the grant before the password step can use it.
func (f *ResetFlow) VerifyOTP(ctx context.Context, email, code string) (*domain.ResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrFlowClosed
	}
	if f.state != domain.FlowOTPSent && f.state != domain.FlowVerifying {
		return nil, ErrFlowState
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = f.email
	}
	if email == "" {
		return nil, ErrEmailMissing
	}
	if !otpCodeRe.MatchString(code) {
		return nil, ErrInvalidCode
	}

	f.state = domain.FlowVerifying

	session, err := f.auth.VerifyRecoveryCode(ctx, email, code)
	if err != nil {
		// Wrong codes are retryable; stay on the verification step.
		f.state = domain.FlowOTPSent
		switch provider.KindOf(err) {
		case provider.KindCodeExpired:
			return nil, ErrCodeExpired
		case provider.KindCodeInvalid:
			return nil, ErrCodeInvalid
		case provider.KindNotFound:
			return nil, ErrCodeNotFound
		case provider.KindRateLimited:
			return nil, ErrTooManyRequests
		default:
			return nil, err
		}
	}

	bundle := session.Bundle()
	bundle.Email = email
	if err := f.tokens.Set(ctx, TokenStoreKey, bundle); err != nil {
		f.state = domain.FlowOTPSent
		return nil, err
	}

	f.email = email
	f.state = domain.FlowPasswordSetup
	return &bundle, nil
}

// DiscoverToken locates the bundle that authorizes the password change:
// the callback URL first (fragment, then query, then a permissive regex
// sweep), falling back to the ephemeral store. The found bundle is checked
// structurally and for expiry before it is returned.
func (f *ResetFlow) DiscoverToken(ctx context.Context) (*domain.ResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.discoverTokenLocked(ctx)
}

func (f *ResetFlow) discoverTokenLocked(ctx context.Context) (*domain.ResetToken, error) {
	bundle := tokensFromURL(f.callbackURL)
	if bundle == nil {
		stored, err := f.tokens.Get(ctx, TokenStoreKey)
		if err != nil {
			return nil, err
		}
		bundle = stored
	}
	if bundle == nil || bundle.AccessToken == "" {
		return nil, ErrTokenMissing
	}
	if bundle.Email == "" {
		bundle.Email = f.email
	}

	if err := f.checkTokenLocked(ctx, bundle); err != nil {
		return nil, err
	}
	return bundle, nil
}

// checkTokenLocked enforces the structural and expiry rules on a bundle.
// An expired bundle is discarded immediately; its only recovery path is a
// brand-new reset request.
func (f *ResetFlow) checkTokenLocked(ctx context.Context, bundle *domain.ResetToken) error {
	exp, err := tokenExpiry(bundle.AccessToken)
	if err != nil {
		return ErrTokenInvalid
	}
	if bundle.ExpiresAt == 0 && exp > 0 {
		bundle.ExpiresAt = exp
	}

	now := f.now()
	if bundle.Expired(now) {
		f.state = domain.FlowFailed
		_ = f.tokens.Clear(ctx, TokenStoreKey)
		return ErrTokenExpired
	}
	if bundle.ExpiresWithin(now, expiryWarningWindow) {
		f.warning = "Your reset link expires soon. Please set your new password now."
	}
	return nil
}

// SetNewPassword consumes the reset authorization exactly once: resolve a
// session, update the password, then unconditionally revoke every session
// and clear the ephemeral store so the recovery grant cannot be replayed.
func (f *ResetFlow) SetNewPassword(ctx context.Context, password, confirm string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFlowClosed
	}
	if f.state.Terminal() {
		return ErrFlowState
	}

	// All local checks run before any provider call.
	if password != confirm {
		return ErrPasswordMismatch
	}
	if err := f.policy(password); err != nil {
		return err
	}

	session, err := f.auth.CurrentSession(ctx)
	if err != nil {
		return errors.Join(ErrProviderUnavailable, err)
	}
	if session != nil && !strings.EqualFold(session.Email, f.email) {
		// The provider's live session belongs to someone else's reset.
		// Only this flow's own bundle may authorize this change.
		session = nil
	}
	if session == nil {
		bundle, err := f.discoverTokenLocked(ctx)
		if err != nil {
			return err
		}
		session, err = f.auth.EstablishSession(ctx, bundle.AccessToken, bundle.RefreshToken)
		if err != nil {
			f.state = domain.FlowFailed
			switch provider.KindOf(err) {
			case provider.KindTokenExpired:
				return ErrSessionExpired
			case provider.KindTokenInvalid:
				return ErrSessionInvalid
			case provider.KindForbidden:
				return ErrSessionForbidden
			case provider.KindSessionMissing:
				return ErrSessionMissing
			default:
				return err
			}
		}
	}
	if session == nil || session.UserID == uuid.Nil {
		f.state = domain.FlowFailed
		return ErrSessionMissing
	}

	if err := f.auth.UpdatePassword(ctx, password); err != nil {
		switch provider.KindOf(err) {
		case provider.KindWeakPassword:
			return ErrPasswordTooWeak
		case provider.KindSamePassword:
			return ErrPasswordSame
		case provider.KindForbidden, provider.KindTokenInvalid, provider.KindSessionMissing:
			f.state = domain.FlowFailed
			return ErrSessionInvalid
		default:
			return err
		}
	}

	// Burn the grant no matter how the session was obtained. A sign-out
	// failure is not allowed to resurrect the flow: the password change
	// already landed.
	_ = f.auth.SignOut(ctx)
	_ = f.tokens.Clear(ctx, TokenStoreKey)

	f.state = domain.FlowCompleted
	f.expireTimer = time.AfterFunc(f.completedTTL, f.Close)
	return nil
}

// recoveryTarget builds the redirect URL embedded in the recovery email.
func (f *ResetFlow) recoveryTarget(email string) string {
	if f.redirectTarget == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(f.redirectTarget, "?") {
		sep = "&"
	}
	return f.redirectTarget + sep + "email=" + url.QueryEscape(email) + "&type=recovery"
}

// tokensFromURL mines a redirect URL for provider-embedded credentials.
// Fragment first, then query string, then a permissive regex sweep over the
// whole URL. Returns nil when nothing usable is found.
func tokensFromURL(raw string) *domain.ResetToken {
	if raw == "" {
		return nil
	}

	if u, err := url.Parse(raw); err == nil {
		if bundle := tokensFromValues(u.Fragment); bundle != nil {
			return bundle
		}
		if bundle := tokensFromValues(u.RawQuery); bundle != nil {
			return bundle
		}
	}

	m := accessTokenRe.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	bundle := &domain.ResetToken{AccessToken: m[1]}
	if rm := refreshTokenRe.FindStringSubmatch(raw); rm != nil {
		bundle.RefreshToken = rm[1]
	}
	if tm := tokenTypeRe.FindStringSubmatch(raw); tm != nil {
		bundle.TokenType = tm[1]
	}
	return bundle
}

func tokensFromValues(rawQuery string) *domain.ResetToken {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil
	}
	access := values.Get("access_token")
	if access == "" {
		return nil
	}
	return &domain.ResetToken{
		AccessToken:  access,
		RefreshToken: values.Get("refresh_token"),
		TokenType:    values.Get("type"),
	}
}

// tokenExpiry decodes the middle segment of a signed token and returns its
// embedded expiry. The signature is not checked here; the provider does
// that when the session is established.
func tokenExpiry(token string) (int64, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return 0, ErrTokenInvalid
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return 0, ErrTokenInvalid
	}
	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return 0, ErrTokenInvalid
	}
	return claims.Exp, nil
}
