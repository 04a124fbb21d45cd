// Package local implements the auth capability against in-process storage:
// it issues and redeems recovery codes, mints the recovery session pair and
// applies password updates. It is the backend used in development and
// anywhere a remote auth service is not wired in.
package local

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fitfuel/fitfuel-api/internal/domain"
	"github.com/fitfuel/fitfuel-api/internal/provider"
	"github.com/fitfuel/fitfuel-api/internal/repository/ports"
	"github.com/fitfuel/fitfuel-api/internal/util"
)

// RecoveryMailer delivers the one-time code out of band.
type RecoveryMailer interface {
	SendRecoveryCode(ctx context.Context, email, code, redirectTarget string) error
}

// RequestLimiter bounds how often one identifier may request a code.
// ok=false means the budget is exhausted; an error means the limiter
// backend itself failed.
type RequestLimiter interface {
	Allow(ctx context.Context, identifier string) (ok bool, err error)
}

// Config tunes the local provider.
type Config struct {
	OTPLength  int
	CodeTTL    time.Duration
	SessionTTL time.Duration
	Now        func() time.Time
}

// Provider is a conforming implementation of provider.AuthProvider.
type Provider struct {
	accounts ports.AccountRepository
	codes    ports.RecoveryCodeRepository
	mailer   RecoveryMailer
	limiter  RequestLimiter
	jwt      *util.JWTManager

	otpLength  int
	codeTTL    time.Duration
	sessionTTL time.Duration
	now        func() time.Time

	mu      sync.Mutex
	current *domain.RecoverySession
	revoked map[string]struct{}
}

// New builds a local provider. limiter may be nil to disable throttling.
func New(accounts ports.AccountRepository, codes ports.RecoveryCodeRepository, mailer RecoveryMailer, limiter RequestLimiter, jwtSecret string, cfg Config) *Provider {
	if cfg.OTPLength <= 0 {
		cfg.OTPLength = 6
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 15 * time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 10 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Provider{
		accounts:   accounts,
		codes:      codes,
		mailer:     mailer,
		limiter:    limiter,
		jwt:        util.NewJWTManager(jwtSecret, cfg.SessionTTL),
		otpLength:  cfg.OTPLength,
		codeTTL:    cfg.CodeTTL,
		sessionTTL: cfg.SessionTTL,
		now:        cfg.Now,
		revoked:    make(map[string]struct{}),
	}
}

// SendRecoveryCode issues a fresh code for the address, voiding any code
// still outstanding so only the newest one redeems.
func (p *Provider) SendRecoveryCode(ctx context.Context, email, redirectTarget string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	if p.limiter != nil {
		ok, err := p.limiter.Allow(ctx, email)
		if err != nil {
			return provider.Wrap(provider.KindUnavailable, err)
		}
		if !ok {
			return provider.Errf(provider.KindRateLimited, "too many reset requests for %s", email)
		}
	}

	account, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return provider.Errf(provider.KindNotFound, "no account for %s", email)
		}
		return provider.Wrap(provider.KindUnavailable, err)
	}

	code, err := util.GenerateNumericOTP(p.otpLength)
	if err != nil {
		return provider.Wrap(provider.KindUnavailable, err)
	}
	hash, salt, err := util.DeriveSecret(code)
	if err != nil {
		return provider.Wrap(provider.KindUnavailable, err)
	}

	if err := p.codes.ConsumeByUser(ctx, account.ID); err != nil {
		return provider.Wrap(provider.KindUnavailable, err)
	}
	record, err := p.codes.Create(ctx, account.ID, hash, salt, p.now().Add(p.codeTTL))
	if err != nil {
		return provider.Wrap(provider.KindUnavailable, err)
	}

	if err := p.mailer.SendRecoveryCode(ctx, email, code, redirectTarget); err != nil {
		// A code nobody received must not stay redeemable.
		_ = p.codes.MarkConsumed(ctx, record.ID)
		return provider.Wrap(provider.KindUnavailable, err)
	}
	return nil
}

// VerifyRecoveryCode redeems the code and mints the recovery session pair.
// The code is single use: it is consumed on success and on expiry.
func (p *Provider) VerifyRecoveryCode(ctx context.Context, email, code string) (*domain.RecoverySession, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	account, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			// Indistinguishable from a wrong code on purpose.
			return nil, provider.Errf(provider.KindCodeInvalid, "invalid recovery code")
		}
		return nil, provider.Wrap(provider.KindUnavailable, err)
	}

	record, err := p.codes.FindPendingByUser(ctx, account.ID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, provider.Errf(provider.KindNotFound, "no pending recovery code")
		}
		return nil, provider.Wrap(provider.KindUnavailable, err)
	}

	if p.now().After(record.ExpiresAt) {
		_ = p.codes.MarkConsumed(ctx, record.ID)
		return nil, provider.Errf(provider.KindCodeExpired, "recovery code expired")
	}
	if !util.VerifySecret(code, record.CodeSalt, record.CodeHash) {
		return nil, provider.Errf(provider.KindCodeInvalid, "invalid recovery code")
	}
	if err := p.codes.MarkConsumed(ctx, record.ID); err != nil {
		return nil, provider.Wrap(provider.KindUnavailable, err)
	}

	session, err := p.mintSession(account.ID, email)
	if err != nil {
		return nil, provider.Wrap(provider.KindUnavailable, err)
	}

	p.mu.Lock()
	p.current = session
	p.mu.Unlock()
	return session, nil
}

// EstablishSession rebuilds the recovery session from a stored token pair.
func (p *Provider) EstablishSession(ctx context.Context, accessToken, refreshToken string) (*domain.RecoverySession, error) {
	if accessToken == "" {
		return nil, provider.Errf(provider.KindSessionMissing, "no access token")
	}

	p.mu.Lock()
	_, revoked := p.revoked[accessToken]
	p.mu.Unlock()
	if revoked {
		return nil, provider.Errf(provider.KindForbidden, "session has been revoked")
	}

	claims, err := p.jwt.Parse(accessToken)
	if err != nil {
		if errors.Is(err, util.ErrTokenExpired) {
			return nil, provider.Errf(provider.KindTokenExpired, "access token expired")
		}
		return nil, provider.Errf(provider.KindTokenInvalid, "access token invalid")
	}
	if claims.Use != util.TokenUseRecovery {
		return nil, provider.Errf(provider.KindForbidden, "token is not a recovery token")
	}

	account, err := p.accounts.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, provider.Errf(provider.KindSessionMissing, "account no longer exists")
		}
		return nil, provider.Wrap(provider.KindUnavailable, err)
	}

	session := &domain.RecoverySession{
		UserID:       account.ID,
		Email:        account.Email,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresAt:    claims.ExpiresAt.Time,
	}
	p.mu.Lock()
	p.current = session
	p.mu.Unlock()
	return session, nil
}

// CurrentSession returns the live session, nil when there is none or it
// has aged out.
func (p *Provider) CurrentSession(ctx context.Context) (*domain.RecoverySession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || p.now().After(p.current.ExpiresAt) {
		p.current = nil
		return nil, nil
	}
	clone := *p.current
	return &clone, nil
}

// UpdatePassword changes the current session's account password. The same
// composition floor applies here as in the client-side validator, and the
// new password must differ from the old one.
func (p *Provider) UpdatePassword(ctx context.Context, newPassword string) error {
	p.mu.Lock()
	session := p.current
	p.mu.Unlock()
	if session == nil {
		return provider.Errf(provider.KindSessionMissing, "no active session")
	}

	if weakPassword(newPassword) {
		return provider.Errf(provider.KindWeakPassword, "password does not meet the policy")
	}

	account, err := p.accounts.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return provider.Errf(provider.KindSessionMissing, "account no longer exists")
		}
		return provider.Wrap(provider.KindUnavailable, err)
	}
	if util.VerifySecret(newPassword, account.PasswordSalt, account.PasswordHash) {
		return provider.Errf(provider.KindSamePassword, "new password matches the old one")
	}

	hash, salt, err := util.DeriveSecret(newPassword)
	if err != nil {
		return provider.Wrap(provider.KindUnavailable, err)
	}
	if err := p.accounts.UpdatePassword(ctx, account.ID, hash, salt); err != nil {
		return provider.Wrap(provider.KindUnavailable, err)
	}
	return nil
}

// SignOut revokes the current session pair. Revoked tokens can never
// establish a session again.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.revoked[p.current.AccessToken] = struct{}{}
		if p.current.RefreshToken != "" {
			p.revoked[p.current.RefreshToken] = struct{}{}
		}
		p.current = nil
	}
	return nil
}

func (p *Provider) mintSession(userID uuid.UUID, email string) (*domain.RecoverySession, error) {
	access, expiresAt, err := p.jwt.Generate(userID, email, util.TokenUseRecovery)
	if err != nil {
		return nil, err
	}
	refresh, _, err := p.jwt.Generate(userID, email, util.TokenUseRefresh)
	if err != nil {
		return nil, err
	}
	return &domain.RecoverySession{
		UserID:       userID,
		Email:        email,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresAt:    expiresAt,
	}, nil
}

func weakPassword(password string) bool {
	if len(password) < 8 {
		return true
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
	return !hasLetter || !hasDigit
}
