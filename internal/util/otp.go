package util

import (
	"crypto/rand"
	"fmt"
)

// GenerateNumericOTP returns a string of cryptographically random decimal
// digits. Bytes are rejection-sampled so every digit stays uniform.
func GenerateNumericOTP(digits int) (string, error) {
	if digits <= 0 {
		digits = 6
	}
	out := make([]byte, 0, digits)
	buf := make([]byte, digits)
	for len(out) < digits {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("otp: %w", err)
		}
		for _, b := range buf {
			// 250 is the largest multiple of 10 below 256; anything
			// above it would skew the distribution.
			if b >= 250 {
				continue
			}
			out = append(out, '0'+b%10)
			if len(out) == digits {
				break
			}
		}
	}
	return string(out), nil
}
