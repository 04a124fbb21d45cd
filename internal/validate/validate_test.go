package validate

import (
	"strings"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  bool
	}{
		{name: "minimal valid", email: "a@b.co", want: true},
		{name: "typical valid", email: "user.name+tag@example.com", want: true},
		{name: "consecutive dots", email: "a..b@c.com", want: false},
		{name: "not an email", email: "not-an-email", want: false},
		{name: "two at signs", email: "a@b@c.com", want: false},
		{name: "missing tld", email: "a@b", want: false},
		{name: "empty", email: "", want: false},
		{name: "long local part", email: strings.Repeat("x", 300) + "@example.com", want: false},
		{name: "overall too long", email: strings.Repeat("x", 60) + "@" + strings.Repeat("y", 200) + ".com", want: false},
	}
	for _, tc := range tests {
		if got := ValidateEmail(tc.email).IsValid; got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "simple", input: "Ana", want: true},
		{name: "hyphen and apostrophe", input: "Mary-Jane O'Neil", want: true},
		{name: "too short", input: "A", want: false},
		{name: "too long", input: strings.Repeat("a", 51), want: false},
		{name: "digits", input: "Agent 47", want: false},
		{name: "leading space", input: " Ana", want: false},
		{name: "doubled space", input: "Ana  Maria", want: false},
	}
	for _, tc := range tests {
		if got := ValidateName(tc.input).IsValid; got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  bool
	}{
		{name: "formatted", phone: "+1 (415) 555-0123", want: true},
		{name: "bare digits", phone: "14155550123", want: true},
		{name: "too short", phone: "123456", want: false},
		{name: "too long", phone: "1234567890123456", want: false},
		{name: "leading zero", phone: "0123456789", want: false},
		{name: "letters", phone: "1-800-FITNESS", want: false},
		{name: "empty", phone: "", want: false},
	}
	for _, tc := range tests {
		if got := ValidatePhone(tc.phone).IsValid; got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{name: "https", url: "https://example.com/path", want: true},
		{name: "http", url: "http://example.com", want: true},
		{name: "no scheme", url: "example.com", want: false},
		{name: "ftp", url: "ftp://example.com", want: false},
		{name: "too long", url: "https://example.com/" + strings.Repeat("a", 2048), want: false},
	}
	for _, tc := range tests {
		if got := ValidateURL(tc.url).IsValid; got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestValidatePasswordConfirmation(t *testing.T) {
	if r := ValidatePasswordConfirmation("Abcdef1!", "Abcdef1!"); !r.IsValid {
		t.Fatalf("expected match to pass, got %q", r.Error)
	}
	if r := ValidatePasswordConfirmation("Abcdef1!", "different"); r.IsValid {
		t.Fatal("expected mismatch to fail")
	}
	if r := ValidatePasswordConfirmation("", ""); r.IsValid {
		t.Fatal("expected empty fields to fail")
	}
}

func TestValidateRegistrationData(t *testing.T) {
	in := RegistrationInput{
		Name:            "Mary-Jane O'Neil",
		Email:           "Mary.Jane@Example.COM",
		Phone:           "+1 (415) 555-0123",
		Password:        "Str0ng&Steady!",
		ConfirmPassword: "Str0ng&Steady!",
	}
	data, errs := ValidateRegistrationData(in)
	if len(errs) != 0 {
		t.Fatalf("expected no field errors, got %v", errs)
	}
	if data.Email != "mary.jane@example.com" {
		t.Fatalf("expected lower-cased email, got %q", data.Email)
	}
	if data.Phone != "14155550123" {
		t.Fatalf("expected normalized phone, got %q", data.Phone)
	}
	if data.Password != in.Password || data.ConfirmPassword != in.ConfirmPassword {
		t.Fatal("password fields must pass through unsanitized")
	}

	t.Run("accumulates field errors", func(t *testing.T) {
		data, errs := ValidateRegistrationData(RegistrationInput{
			Name:            "A",
			Email:           "nope",
			Phone:           "123",
			Password:        "short",
			ConfirmPassword: "different",
		})
		if data != nil {
			t.Fatal("expected nil data on failure")
		}
		for _, field := range []string{"name", "email", "phone", "password", "confirm_password"} {
			if errs[field] == "" {
				t.Fatalf("expected error for field %q, got %v", field, errs)
			}
		}
	})

	t.Run("phone optional", func(t *testing.T) {
		in := in
		in.Phone = ""
		data, errs := ValidateRegistrationData(in)
		if len(errs) != 0 {
			t.Fatalf("expected empty phone to be allowed, got %v", errs)
		}
		if data.Phone != "" {
			t.Fatalf("expected empty phone passthrough, got %q", data.Phone)
		}
	})
}
