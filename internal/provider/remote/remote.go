// Package remote adapts a hosted auth service's REST surface to the
// provider interface. It is a thin client: failure classification happens
// on the service's error codes and statuses, never on message text.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fitfuel/fitfuel-api/internal/domain"
	"github.com/fitfuel/fitfuel-api/internal/provider"
)

// Provider talks to a remote auth service.
type Provider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	now     func() time.Time

	mu      sync.Mutex
	current *domain.RecoverySession
}

func New(baseURL, apiKey string, client *http.Client) *Provider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
		now:     time.Now,
	}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type sessionPayload struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID    uuid.UUID `json:"id"`
		Email string    `json:"email"`
	} `json:"user"`
}

func (p *Provider) SendRecoveryCode(ctx context.Context, email, redirectTarget string) error {
	body := map[string]string{"email": email}
	if redirectTarget != "" {
		body["redirect_to"] = redirectTarget
	}
	resp, errBody, err := p.post(ctx, "/auth/recover", body, "")
	if err != nil {
		return provider.Wrap(provider.KindUnavailable, err)
	}
	if resp >= 200 && resp < 300 {
		return nil
	}
	return classify(resp, errBody, map[string]provider.Kind{
		"user_not_found": provider.KindNotFound,
		"over_limit":     provider.KindRateLimited,
	}, map[int]provider.Kind{
		http.StatusNotFound:        provider.KindNotFound,
		http.StatusTooManyRequests: provider.KindRateLimited,
	})
}

func (p *Provider) VerifyRecoveryCode(ctx context.Context, email, code string) (*domain.RecoverySession, error) {
	resp, raw, err := p.postRaw(ctx, "/auth/verify", map[string]string{
		"email": email,
		"token": code,
		"type":  "recovery",
	}, "")
	if err != nil {
		return nil, provider.Wrap(provider.KindUnavailable, err)
	}
	if resp < 200 || resp >= 300 {
		return nil, classify(resp, decodeError(raw), map[string]provider.Kind{
			"otp_expired":    provider.KindCodeExpired,
			"otp_invalid":    provider.KindCodeInvalid,
			"user_not_found": provider.KindNotFound,
		}, map[int]provider.Kind{
			http.StatusGone:         provider.KindCodeExpired,
			http.StatusUnauthorized: provider.KindCodeInvalid,
			http.StatusNotFound:     provider.KindNotFound,
		})
	}

	session, err := p.decodeSession(raw)
	if err != nil {
		return nil, provider.Wrap(provider.KindUnavailable, err)
	}
	p.mu.Lock()
	p.current = session
	p.mu.Unlock()
	return session, nil
}

func (p *Provider) EstablishSession(ctx context.Context, accessToken, refreshToken string) (*domain.RecoverySession, error) {
	if accessToken == "" {
		return nil, provider.Errf(provider.KindSessionMissing, "no access token")
	}
	resp, raw, err := p.postRaw(ctx, "/auth/session", map[string]string{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	}, "")
	if err != nil {
		return nil, provider.Wrap(provider.KindUnavailable, err)
	}
	if resp < 200 || resp >= 300 {
		return nil, classify(resp, decodeError(raw), map[string]provider.Kind{
			"token_expired": provider.KindTokenExpired,
			"token_invalid": provider.KindTokenInvalid,
			"token_revoked": provider.KindForbidden,
		}, map[int]provider.Kind{
			http.StatusUnauthorized: provider.KindTokenInvalid,
			http.StatusForbidden:    provider.KindForbidden,
			http.StatusNotFound:     provider.KindSessionMissing,
		})
	}

	session, err := p.decodeSession(raw)
	if err != nil {
		return nil, provider.Wrap(provider.KindUnavailable, err)
	}
	p.mu.Lock()
	p.current = session
	p.mu.Unlock()
	return session, nil
}

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

func (p *Provider) UpdatePassword(ctx context.Context, newPassword string) error {
	p.mu.Lock()
	session := p.current
	p.mu.Unlock()
	if session == nil {
		return provider.Errf(provider.KindSessionMissing, "no active session")
	}

	resp, errBody, err := p.put(ctx, "/auth/user", map[string]string{"password": newPassword}, session.AccessToken)
	if err != nil {
		return provider.Wrap(provider.KindUnavailable, err)
	}
	if resp >= 200 && resp < 300 {
		return nil
	}
	return classify(resp, errBody, map[string]provider.Kind{
		"weak_password": provider.KindWeakPassword,
		"same_password": provider.KindSamePassword,
	}, map[int]provider.Kind{
		http.StatusUnprocessableEntity: provider.KindWeakPassword,
		http.StatusUnauthorized:        provider.KindSessionMissing,
		http.StatusForbidden:           provider.KindForbidden,
	})
}

func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	session := p.current
	p.current = nil
	p.mu.Unlock()
	if session == nil {
		return nil
	}
	// Best effort against the service; the local session is gone already.
	resp, errBody, err := p.post(ctx, "/auth/logout", map[string]string{}, session.AccessToken)
	if err != nil {
		return provider.Wrap(provider.KindUnavailable, err)
	}
	if resp >= 200 && resp < 300 {
		return nil
	}
	return classify(resp, errBody, nil, nil)
}

func (p *Provider) decodeSession(raw []byte) (*domain.RecoverySession, error) {
	var payload sessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("malformed session payload: %w", err)
	}
	tokenType := payload.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}
	return &domain.RecoverySession{
		UserID:       payload.User.ID,
		Email:        payload.User.Email,
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		TokenType:    tokenType,
		ExpiresAt:    p.now().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}, nil
}

func (p *Provider) post(ctx context.Context, path string, body map[string]string, bearer string) (int, *apiError, error) {
	status, raw, err := p.do(ctx, http.MethodPost, path, body, bearer)
	return status, decodeError(raw), err
}

func (p *Provider) postRaw(ctx context.Context, path string, body map[string]string, bearer string) (int, []byte, error) {
	return p.do(ctx, http.MethodPost, path, body, bearer)
}

func (p *Provider) put(ctx context.Context, path string, body map[string]string, bearer string) (int, *apiError, error) {
	status, raw, err := p.do(ctx, http.MethodPut, path, body, bearer)
	return status, decodeError(raw), err
}

func (p *Provider) do(ctx context.Context, method, path string, body map[string]string, bearer string) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, buf.Bytes(), nil
}

func decodeError(raw []byte) *apiError {
	if len(raw) == 0 {
		return nil
	}
	var e apiError
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil
	}
	return &e
}

// classify turns a non-2xx response into a kinded error. Service error
// codes win over statuses; anything unmatched on a 5xx reads as the
// service being down, the rest as unknown.
func classify(status int, errBody *apiError, byCode map[string]provider.Kind, byStatus map[int]provider.Kind) error {
	message := fmt.Sprintf("auth service returned %d", status)
	if errBody != nil && errBody.Message != "" {
		message = errBody.Message
	}
	if errBody != nil && errBody.Code != "" {
		if kind, ok := byCode[errBody.Code]; ok {
			return provider.Errf(kind, "%s", message)
		}
	}
	if kind, ok := byStatus[status]; ok {
		return provider.Errf(kind, "%s", message)
	}
	if status >= 500 {
		return provider.Errf(provider.KindUnavailable, "%s", message)
	}
	return provider.Errf(provider.KindUnknown, "%s", message)
}
