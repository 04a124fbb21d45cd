package local

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fitfuel/fitfuel-api/internal/domain"
	"github.com/fitfuel/fitfuel-api/internal/provider"
	"github.com/fitfuel/fitfuel-api/internal/repository/memory"
	"github.com/fitfuel/fitfuel-api/internal/service"
	"github.com/fitfuel/fitfuel-api/internal/util"
)

type fakeMailer struct {
	emails  []string
	codes   []string
	targets []string
	fail    error
}

func (m *fakeMailer) SendRecoveryCode(ctx context.Context, email, code, redirectTarget string) error {
	if m.fail != nil {
		return m.fail
	}
	m.emails = append(m.emails, email)
	m.codes = append(m.codes, code)
	m.targets = append(m.targets, redirectTarget)
	return nil
}

func (m *fakeMailer) codeFor(t *testing.T, email string) string {
	t.Helper()
	for i := len(m.emails) - 1; i >= 0; i-- {
		if m.emails[i] == email {
			return m.codes[i]
		}
	}
	t.Fatalf("no recovery code was sent to %s", email)
	return ""
}

func (m *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()
	if len(m.codes) == 0 {
		t.Fatal("no recovery code was sent")
	}
	return m.codes[len(m.codes)-1]
}

type fakeLimiter struct {
	allow bool
	err   error
	calls []string
}

func (l *fakeLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	l.calls = append(l.calls, identifier)
	return l.allow, l.err
}

func seedAccount(t *testing.T, accounts *memory.AccountRepository, email, password string) uuid.UUID {
	t.Helper()
	hash, salt, err := util.DeriveSecret(password)
	if err != nil {
		t.Fatalf("derive secret: %v", err)
	}
	account := accounts.Seed(domain.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		PasswordSalt: salt,
	})
	return account.ID
}

func newProvider(t *testing.T, mailer *fakeMailer, limiter RequestLimiter, cfg Config) (*Provider, *memory.AccountRepository, uuid.UUID) {
	t.Helper()
	accounts := memory.NewAccountRepository()
	codes := memory.NewRecoveryCodeRepository()
	id := seedAccount(t, accounts, "ada@example.com", "OldPass1")
	return New(accounts, codes, mailer, limiter, "test-secret", cfg), accounts, id
}

func TestSendAndVerifyRecoveryCode(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{}
	p, _, userID := newProvider(t, mailer, nil, Config{})

	if err := p.SendRecoveryCode(ctx, "Ada@Example.com", "https://app.test/confirm"); err != nil {
		t.Fatalf("send: %v", err)
	}
	code := mailer.lastCode(t)
	if len(code) != 6 || strings.TrimLeft(code, "0123456789") != "" {
		t.Fatalf("expected a 6-digit code, got %q", code)
	}
	if mailer.targets[0] != "https://app.test/confirm" {
		t.Fatalf("unexpected redirect target %q", mailer.targets[0])
	}

	session, err := p.VerifyRecoveryCode(ctx, "ada@example.com", code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if session.UserID != userID {
		t.Fatalf("session user = %s, want %s", session.UserID, userID)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatal("expected both tokens to be minted")
	}

	// Single use.
	if _, err := p.VerifyRecoveryCode(ctx, "ada@example.com", code); !provider.IsKind(err, provider.KindNotFound) {
		t.Fatalf("second redemption kind = %v, want not-found", provider.KindOf(err))
	}
}

func TestSendRecoveryCodeUnknownEmail(t *testing.T) {
	p, _, _ := newProvider(t, &fakeMailer{}, nil, Config{})
	err := p.SendRecoveryCode(context.Background(), "nobody@example.com", "")
	if !provider.IsKind(err, provider.KindNotFound) {
		t.Fatalf("kind = %v, want not-found", provider.KindOf(err))
	}
}

func TestSendRecoveryCodeRateLimited(t *testing.T) {
	limiter := &fakeLimiter{allow: false}
	p, _, _ := newProvider(t, &fakeMailer{}, limiter, Config{})
	err := p.SendRecoveryCode(context.Background(), "ada@example.com", "")
	if !provider.IsKind(err, provider.KindRateLimited) {
		t.Fatalf("kind = %v, want rate-limited", provider.KindOf(err))
	}
	if len(limiter.calls) != 1 || limiter.calls[0] != "ada@example.com" {
		t.Fatalf("limiter saw %v", limiter.calls)
	}
}

func TestSendRecoveryCodeLimiterFailure(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("redis down")}
	p, _, _ := newProvider(t, &fakeMailer{}, limiter, Config{})
	err := p.SendRecoveryCode(context.Background(), "ada@example.com", "")
	if !provider.IsKind(err, provider.KindUnavailable) {
		t.Fatalf("kind = %v, want unavailable", provider.KindOf(err))
	}
}

func TestSendRecoveryCodeMailFailureVoidsCode(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{fail: errors.New("smtp refused")}
	p, _, _ := newProvider(t, mailer, nil, Config{})

	if err := p.SendRecoveryCode(ctx, "ada@example.com", ""); !provider.IsKind(err, provider.KindUnavailable) {
		t.Fatalf("kind = %v, want unavailable", provider.KindOf(err))
	}
	// Whatever was minted and never delivered must not redeem.
	if _, err := p.VerifyRecoveryCode(ctx, "ada@example.com", "000000"); !provider.IsKind(err, provider.KindNotFound) {
		t.Fatalf("kind = %v, want not-found", provider.KindOf(err))
	}
}

func TestResendVoidsOlderCode(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{}
	p, _, _ := newProvider(t, mailer, nil, Config{})

	if err := p.SendRecoveryCode(ctx, "ada@example.com", ""); err != nil {
		t.Fatalf("first send: %v", err)
	}
	first := mailer.lastCode(t)
	if err := p.SendRecoveryCode(ctx, "ada@example.com", ""); err != nil {
		t.Fatalf("second send: %v", err)
	}
	second := mailer.lastCode(t)

	if first != second {
		if _, err := p.VerifyRecoveryCode(ctx, "ada@example.com", first); err == nil {
			t.Fatal("stale code still redeemed after resend")
		}
	}
	if _, err := p.VerifyRecoveryCode(ctx, "ada@example.com", second); err != nil {
		t.Fatalf("newest code did not redeem: %v", err)
	}
}

func TestVerifyRecoveryCodeExpired(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{}
	now := time.Now()
	clock := &now
	p, _, _ := newProvider(t, mailer, nil, Config{
		CodeTTL: 15 * time.Minute,
		Now:     func() time.Time { return *clock },
	})

	if err := p.SendRecoveryCode(ctx, "ada@example.com", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	code := mailer.lastCode(t)

	later := now.Add(16 * time.Minute)
	clock = &later
	if _, err := p.VerifyRecoveryCode(ctx, "ada@example.com", code); !provider.IsKind(err, provider.KindCodeExpired) {
		t.Fatalf("kind = %v, want code-expired", provider.KindOf(err))
	}
	// Expiry consumes the code, a retry now reads as not-found.
	if _, err := p.VerifyRecoveryCode(ctx, "ada@example.com", code); !provider.IsKind(err, provider.KindNotFound) {
		t.Fatalf("kind = %v, want not-found", provider.KindOf(err))
	}
}

func TestVerifyRecoveryCodeWrongCode(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{}
	p, _, _ := newProvider(t, mailer, nil, Config{})

	if err := p.SendRecoveryCode(ctx, "ada@example.com", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	code := mailer.lastCode(t)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if _, err := p.VerifyRecoveryCode(ctx, "ada@example.com", wrong); !provider.IsKind(err, provider.KindCodeInvalid) {
		t.Fatalf("kind = %v, want code-invalid", provider.KindOf(err))
	}
	// A wrong guess does not burn the real code.
	if _, err := p.VerifyRecoveryCode(ctx, "ada@example.com", code); err != nil {
		t.Fatalf("real code rejected after a wrong guess: %v", err)
	}
}

func TestEstablishSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{}
	accounts := memory.NewAccountRepository()
	codes := memory.NewRecoveryCodeRepository()
	userID := seedAccount(t, accounts, "ada@example.com", "OldPass1")
	p := New(accounts, codes, mailer, nil, "test-secret", Config{})

	if err := p.SendRecoveryCode(ctx, "ada@example.com", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	session, err := p.VerifyRecoveryCode(ctx, "ada@example.com", mailer.lastCode(t))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	// Simulate a fresh process holding only the stored pair.
	fresh := New(accounts, codes, mailer, nil, "test-secret", Config{})

	restored, err := fresh.EstablishSession(ctx, session.AccessToken, session.RefreshToken)
	if err != nil {
		t.Fatalf("establish: %v", err)
	}
	if restored.UserID != userID || restored.Email != "ada@example.com" {
		t.Fatalf("restored session = %+v", restored)
	}
}

func TestEstablishSessionRejectsRefreshUse(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{}
	p, _, _ := newProvider(t, mailer, nil, Config{})

	if err := p.SendRecoveryCode(ctx, "ada@example.com", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	session, err := p.VerifyRecoveryCode(ctx, "ada@example.com", mailer.lastCode(t))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	// The refresh token is signed with a different use claim and must not
	// pass as an access token.
	if _, err := p.EstablishSession(ctx, session.RefreshToken, ""); !provider.IsKind(err, provider.KindForbidden) {
		t.Fatalf("kind = %v, want forbidden", provider.KindOf(err))
	}
}

func TestEstablishSessionBadTokens(t *testing.T) {
	p, _, _ := newProvider(t, &fakeMailer{}, nil, Config{})
	ctx := context.Background()

	if _, err := p.EstablishSession(ctx, "", ""); !provider.IsKind(err, provider.KindSessionMissing) {
		t.Fatalf("empty token kind = %v, want session-missing", provider.KindOf(err))
	}
	if _, err := p.EstablishSession(ctx, "not-a-jwt", ""); !provider.IsKind(err, provider.KindTokenInvalid) {
		t.Fatalf("garbage token kind = %v, want token-invalid", provider.KindOf(err))
	}
}

func TestUpdatePasswordFlow(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{}
	p, accounts, userID := newProvider(t, mailer, nil, Config{})

	if err := p.UpdatePassword(ctx, "NewPass1"); !provider.IsKind(err, provider.KindSessionMissing) {
		t.Fatalf("no-session kind = %v, want session-missing", provider.KindOf(err))
	}

	if err := p.SendRecoveryCode(ctx, "ada@example.com", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := p.VerifyRecoveryCode(ctx, "ada@example.com", mailer.lastCode(t)); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if err := p.UpdatePassword(ctx, "short1"); !provider.IsKind(err, provider.KindWeakPassword) {
		t.Fatalf("weak kind = %v, want weak-password", provider.KindOf(err))
	}
	if err := p.UpdatePassword(ctx, "OldPass1"); !provider.IsKind(err, provider.KindSamePassword) {
		t.Fatalf("same kind = %v, want same-password", provider.KindOf(err))
	}
	if err := p.UpdatePassword(ctx, "NewPass1"); err != nil {
		t.Fatalf("update: %v", err)
	}

	account, err := accounts.FindByID(ctx, userID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !util.VerifySecret("NewPass1", account.PasswordSalt, account.PasswordHash) {
		t.Fatal("stored hash does not match the new password")
	}
}

func TestInterleavedFlowsKeepTheirOwnAccounts(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{}
	accounts := memory.NewAccountRepository()
	codes := memory.NewRecoveryCodeRepository()
	aliceID := seedAccount(t, accounts, "alice@example.com", "AliceOld1")
	bobID := seedAccount(t, accounts, "bob@example.com", "BobOld1")
	p := New(accounts, codes, mailer, nil, "test-secret", Config{})

	aliceFlow := service.NewResetFlow(p, memory.NewTokenStore(), service.FlowConfig{})
	defer aliceFlow.Close()
	bobFlow := service.NewResetFlow(p, memory.NewTokenStore(), service.FlowConfig{})
	defer bobFlow.Close()

	if err := aliceFlow.RequestReset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("alice request: %v", err)
	}
	if err := bobFlow.RequestReset(ctx, "bob@example.com"); err != nil {
		t.Fatalf("bob request: %v", err)
	}
	if _, err := aliceFlow.VerifyOTP(ctx, "alice@example.com", mailer.codeFor(t, "alice@example.com")); err != nil {
		t.Fatalf("alice verify: %v", err)
	}
	// Bob verifies after Alice, so the provider's live session is his when
	// Alice confirms her new password.
	if _, err := bobFlow.VerifyOTP(ctx, "bob@example.com", mailer.codeFor(t, "bob@example.com")); err != nil {
		t.Fatalf("bob verify: %v", err)
	}

	if err := aliceFlow.SetNewPassword(ctx, "AliceNew1", "AliceNew1"); err != nil {
		t.Fatalf("alice set password: %v", err)
	}

	bob, err := accounts.FindByID(ctx, bobID)
	if err != nil {
		t.Fatalf("find bob: %v", err)
	}
	if util.VerifySecret("AliceNew1", bob.PasswordSalt, bob.PasswordHash) {
		t.Fatal("bob's password was rewritten through alice's flow")
	}
	if !util.VerifySecret("BobOld1", bob.PasswordSalt, bob.PasswordHash) {
		t.Fatal("bob's password changed")
	}

	alice, err := accounts.FindByID(ctx, aliceID)
	if err != nil {
		t.Fatalf("find alice: %v", err)
	}
	if !util.VerifySecret("AliceNew1", alice.PasswordSalt, alice.PasswordHash) {
		t.Fatal("alice's new password did not land on her account")
	}
}

func TestSignOutRevokesTokens(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{}
	p, _, _ := newProvider(t, mailer, nil, Config{})

	if err := p.SendRecoveryCode(ctx, "ada@example.com", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	session, err := p.VerifyRecoveryCode(ctx, "ada@example.com", mailer.lastCode(t))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if err := p.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if current, _ := p.CurrentSession(ctx); current != nil {
		t.Fatal("session survived sign-out")
	}
	if _, err := p.EstablishSession(ctx, session.AccessToken, session.RefreshToken); !provider.IsKind(err, provider.KindForbidden) {
		t.Fatalf("kind = %v, want forbidden", provider.KindOf(err))
	}
}
