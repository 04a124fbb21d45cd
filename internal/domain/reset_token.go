package domain

import "time"

// ResetToken is the credential bundle handed out by a successful OTP
// verification. It is the only artifact that authorizes a password change
// and lives exclusively in the ephemeral token store until consumed.
type ResetToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Email        string `json:"email"`
	UserID       string `json:"user_id"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// HasExpiry reports whether the bundle carries an explicit expiry timestamp.
func (t *ResetToken) HasExpiry() bool {
	return t.ExpiresAt > 0
}

// Expired reports whether the bundle's expiry has passed at the given time.
// Bundles without an expiry never report expired here; the structural token
// check in the flow covers those.
func (t *ResetToken) Expired(now time.Time) bool {
	return t.HasExpiry() && now.Unix() >= t.ExpiresAt
}

// ExpiresWithin reports whether the bundle expires inside the window.
func (t *ResetToken) ExpiresWithin(now time.Time, window time.Duration) bool {
	if !t.HasExpiry() {
		return false
	}
	return now.Add(window).Unix() >= t.ExpiresAt
}
