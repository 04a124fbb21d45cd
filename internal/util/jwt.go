package util

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token uses carried in the "use" claim.
const (
	TokenUseRecovery = "recovery"
	TokenUseRefresh  = "refresh"
)

// RecoveryClaims is the claim set of the short-lived tokens minted after a
// successful OTP verification.
type RecoveryClaims struct {
	UserID uuid.UUID `json:"sub_id"`
	Email  string    `json:"email"`
	Use    string    `json:"use"`
	jwt.RegisteredClaims
}

// JWTManager signs and parses the recovery token pair.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), ttl: ttl}
}

// TTL is the lifetime stamped on generated tokens.
func (m *JWTManager) TTL() time.Duration { return m.ttl }

// Generate mints an HS256 token for the given use, returning the signed
// string and its expiry.
func (m *JWTManager) Generate(userID uuid.UUID, email, use string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.ttl)
	claims := RecoveryClaims{
		UserID: userID,
		Email:  email,
		Use:    use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
)

// Parse validates the signature and expiry and returns the claims.
func (m *JWTManager) Parse(tokenString string) (*RecoveryClaims, error) {
	claims := &RecoveryClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	if !token.Valid {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
