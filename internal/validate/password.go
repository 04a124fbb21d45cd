package validate

import (
	"strings"
	"unicode"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128

	// MinPasswordStrength is the score a password must reach to pass.
	MinPasswordStrength = 3

	// MaxPasswordStrength is the number of independent strength criteria.
	MaxPasswordStrength = 7
)

// Passwords that appear in every breach corpus. Matched case-insensitively.
var weakPasswords = []string{
	"password",
	"password1",
	"passw0rd",
	"12345678",
	"123456789",
	"qwertyuiop",
	"letmein",
	"welcome1",
	"iloveyou",
	"sunshine",
	"football",
	"baseball",
	"dragon123",
	"trustno1",
}

// ValidatePassword enforces the shared password policy and always reports
// the computed strength score, pass or fail.
func ValidatePassword(password string) Result {
	strength := passwordStrength(password)

	fail := func(msg string) Result {
		return Result{Error: msg, Strength: strength}
	}

	if n := len(password); n < minPasswordLength {
		return fail("password must be at least 8 characters")
	} else if n > maxPasswordLength {
		return fail("password must be at most 128 characters")
	}
	if password != strings.TrimSpace(password) {
		return fail("password must not start or end with whitespace")
	}
	lowered := strings.ToLower(password)
	for _, weak := range weakPasswords {
		if lowered == weak {
			return fail("password is too common")
		}
	}
	if hasRepeatedRun(password, 3) {
		return fail("password must not repeat the same character 3 or more times")
	}
	if hasSequentialRun(lowered, 3) {
		return fail("password must not contain sequential characters like abc or 123")
	}
	if strength < MinPasswordStrength {
		return fail("password is too weak")
	}

	return Result{IsValid: true, Strength: strength}
}

// passwordStrength counts the independent composition criteria the password
// satisfies: each character class, two length tiers, and character variety.
func passwordStrength(password string) int {
	var hasLower, hasUpper, hasDigit, hasSpecial bool
	seen := make(map[rune]struct{})
	runes := []rune(password)
	for _, r := range runes {
		seen[r] = struct{}{}
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	strength := 0
	for _, ok := range []bool{hasLower, hasUpper, hasDigit, hasSpecial} {
		if ok {
			strength++
		}
	}
	if len(runes) >= 12 {
		strength++
	}
	if len(runes) >= 16 {
		strength++
	}
	if len(runes) > 0 && float64(len(seen))/float64(len(runes)) >= 0.7 {
		strength++
	}
	return strength
}

// hasRepeatedRun reports a run of n or more identical characters.
func hasRepeatedRun(s string, n int) bool {
	run := 0
	var prev rune = -1
	for _, r := range s {
		if r == prev {
			run++
		} else {
			run = 1
			prev = r
		}
		if run >= n {
			return true
		}
	}
	return false
}

// hasSequentialRun reports an ascending run of n characters within a single
// class (letters or digits), e.g. "abc" or "123". Input must be lower-cased.
func hasSequentialRun(s string, n int) bool {
	runes := []rune(s)
	for i := 0; i+n <= len(runes); i++ {
		sequential := true
		for j := 1; j < n; j++ {
			a, b := runes[i+j-1], runes[i+j]
			sameClass := (a >= 'a' && a <= 'z' && b >= 'a' && b <= 'z') ||
				(a >= '0' && a <= '9' && b >= '0' && b <= '9')
			if !sameClass || b != a+1 {
				sequential = false
				break
			}
		}
		if sequential {
			return true
		}
	}
	return false
}
