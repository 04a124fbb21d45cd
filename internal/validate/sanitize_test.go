package validate

import (
	"strings"
	"testing"
)

func TestSanitizeInputStripsScriptBlocks(t *testing.T) {
	inputs := []string{
		"hello <script>alert('x')</script> world",
		"<SCRIPT src=evil.js>steal()</SCRIPT>",
		"<script\n>multi\nline</script\n>",
		"a<iframe src=x>b</iframe>c",
		"<object data=x>payload</object>",
		"<embed src=x>payload</embed>",
	}
	for _, in := range inputs {
		out := SanitizeInput(in, SanitizeOptions{})
		if strings.Contains(strings.ToLower(out), "<script") {
			t.Fatalf("sanitized output still contains script tag: %q -> %q", in, out)
		}
		if strings.ContainsAny(out, "<>") {
			t.Fatalf("sanitized output still contains angle brackets: %q -> %q", in, out)
		}
	}
}

func TestSanitizeInputStripsSchemesAndHandlers(t *testing.T) {
	out := SanitizeInput(`click javascript:alert(1) or onclick="evil()" here`, SanitizeOptions{})
	if strings.Contains(strings.ToLower(out), "javascript:") {
		t.Fatalf("scheme survived sanitization: %q", out)
	}
	if strings.Contains(strings.ToLower(out), "onclick=") {
		t.Fatalf("event handler survived sanitization: %q", out)
	}

	out = SanitizeInput("data: text and vbscript:msgbox", SanitizeOptions{})
	if strings.Contains(strings.ToLower(out), "vbscript:") {
		t.Fatalf("vbscript scheme survived: %q", out)
	}
}

func TestSanitizeInputEncodesEntities(t *testing.T) {
	out := SanitizeInput(`Tom & Jerry's "show" a/b`, SanitizeOptions{})
	want := "Tom &amp; Jerry&#x27;s &quot;show&quot; a&#x2F;b"
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestSanitizeInputIdempotent(t *testing.T) {
	inputs := []string{
		`Tom & Jerry's "show" a/b`,
		"plain text with no specials",
		"<b>bold</b> & <i>italic</i>",
		"5 < 6 > 4 & 'quotes'",
	}
	for _, in := range inputs {
		once := SanitizeInput(in, SanitizeOptions{})
		twice := SanitizeInput(once, SanitizeOptions{})
		if once != twice {
			t.Fatalf("sanitize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestSanitizeInputTrimAndTruncate(t *testing.T) {
	out := SanitizeInput("  padded  ", SanitizeOptions{})
	if out != "padded" {
		t.Fatalf("expected trimmed output, got %q", out)
	}

	long := strings.Repeat("a", 40)
	out = SanitizeInput(long, SanitizeOptions{MaxLength: 10})
	if len(out) != 10 {
		t.Fatalf("expected 10 characters, got %d", len(out))
	}

	out = SanitizeInput(strings.Repeat("b", 1500), SanitizeOptions{})
	if len(out) != defaultMaxLength {
		t.Fatalf("expected default cap %d, got %d", defaultMaxLength, len(out))
	}
}

func TestSanitizeInputAllowHTML(t *testing.T) {
	in := "<b>keep me</b>"
	if out := SanitizeInput(in, SanitizeOptions{AllowHTML: true}); out != in {
		t.Fatalf("allow-html should keep markup, got %q", out)
	}
}
