// Package validate holds the pure input-validation and sanitization helpers
// shared by registration and the password-reset flow. Nothing in here touches
// the network or carries state between calls except RateLimiter.
package validate

import (
	"regexp"
	"strings"
)

// Result is the verdict of a single validator. Strength is only populated by
// ValidatePassword and is reported whether or not the password passed.
type Result struct {
	IsValid  bool   `json:"is_valid"`
	Error    string `json:"error,omitempty"`
	Strength int    `json:"strength,omitempty"`
}

func valid() Result { return Result{IsValid: true} }

func invalid(msg string) Result { return Result{Error: msg} }

const (
	maxEmailLength      = 254
	maxEmailLocalLength = 64
	maxURLLength        = 2048
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nameRe  = regexp.MustCompile(`^[A-Za-z '-]+$`)
	phoneRe = regexp.MustCompile(`^[1-9]\d{6,14}$`)
	urlRe   = regexp.MustCompile(`(?i)^https?://[^\s/$.?#][^\s]*$`)

	phoneFormatting = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "", "+", "")
)

// ValidateEmail applies the shared address-shape rule plus the RFC 5321
// length ceilings (254 overall, 64 for the local part).
func ValidateEmail(email string) Result {
	if strings.TrimSpace(email) == "" {
		return invalid("email is required")
	}
	if len(email) > maxEmailLength {
		return invalid("email is too long")
	}
	if strings.Count(email, "@") != 1 {
		return invalid("email must contain exactly one @")
	}
	local := email[:strings.Index(email, "@")]
	if len(local) > maxEmailLocalLength {
		return invalid("email local part is too long")
	}
	if strings.Contains(email, "..") {
		return invalid("email must not contain consecutive dots")
	}
	if !emailRe.MatchString(email) {
		return invalid("email format is invalid")
	}
	return valid()
}

// ValidateName accepts 2-50 characters of letters, spaces, hyphens and
// apostrophes. Edge whitespace and doubled internal whitespace are rejected
// rather than silently trimmed.
func ValidateName(name string) Result {
	if name == "" {
		return invalid("name is required")
	}
	if name != strings.TrimSpace(name) {
		return invalid("name must not start or end with whitespace")
	}
	if strings.Contains(name, "  ") {
		return invalid("name must not contain doubled spaces")
	}
	n := len([]rune(name))
	if n < 2 || n > 50 {
		return invalid("name must be between 2 and 50 characters")
	}
	if !nameRe.MatchString(name) {
		return invalid("name may only contain letters, spaces, hyphens and apostrophes")
	}
	return valid()
}

// ValidatePhone strips common formatting punctuation and requires 7-15
// digits not starting with zero.
func ValidatePhone(phone string) Result {
	digits := phoneFormatting.Replace(strings.TrimSpace(phone))
	if digits == "" {
		return invalid("phone number is required")
	}
	if !phoneRe.MatchString(digits) {
		return invalid("phone number must be 7 to 15 digits and not start with zero")
	}
	return valid()
}

// NormalizePhone returns the bare digit string ValidatePhone checks.
func NormalizePhone(phone string) string {
	return phoneFormatting.Replace(strings.TrimSpace(phone))
}

// ValidateURL requires an explicit http or https scheme.
func ValidateURL(raw string) Result {
	if strings.TrimSpace(raw) == "" {
		return invalid("url is required")
	}
	if len(raw) > maxURLLength {
		return invalid("url is too long")
	}
	if !urlRe.MatchString(raw) {
		return invalid("url must start with http:// or https://")
	}
	return valid()
}

// ValidatePasswordConfirmation requires both fields and byte equality.
func ValidatePasswordConfirmation(password, confirmation string) Result {
	if password == "" || confirmation == "" {
		return invalid("both password fields are required")
	}
	if password != confirmation {
		return invalid("passwords do not match")
	}
	return valid()
}

// RegistrationInput is the raw form payload for account registration.
type RegistrationInput struct {
	Name            string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
}

// RegistrationData is the cleaned payload produced when every field passes.
// Password fields pass through untouched: sanitizing a password corrupts it.
type RegistrationData struct {
	Name            string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
}

// ValidateRegistrationData runs every field validator, accumulating a
// field-keyed error map instead of stopping at the first failure. Phone is
// optional; everything else is required. On success the returned data holds
// sanitized name, lower-cased email and normalized phone.
func ValidateRegistrationData(in RegistrationInput) (*RegistrationData, map[string]string) {
	errs := make(map[string]string)

	if r := ValidateName(in.Name); !r.IsValid {
		errs["name"] = r.Error
	}
	if r := ValidateEmail(in.Email); !r.IsValid {
		errs["email"] = r.Error
	}
	if in.Phone != "" {
		if r := ValidatePhone(in.Phone); !r.IsValid {
			errs["phone"] = r.Error
		}
	}
	if r := ValidatePassword(in.Password); !r.IsValid {
		errs["password"] = r.Error
	}
	if r := ValidatePasswordConfirmation(in.Password, in.ConfirmPassword); !r.IsValid {
		errs["confirm_password"] = r.Error
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &RegistrationData{
		Name:            SanitizeInput(in.Name, SanitizeOptions{}),
		Email:           strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:           NormalizePhone(in.Phone),
		Password:        in.Password,
		ConfirmPassword: in.ConfirmPassword,
	}, nil
}
