package validate

import (
	"regexp"
	"strings"
)

// SanitizeOptions tunes SanitizeInput. The zero value strips HTML and caps
// the input at 1000 characters.
type SanitizeOptions struct {
	AllowHTML bool
	// MaxLength caps the input in runes; zero means the default of 1000.
	MaxLength int
}

const defaultMaxLength = 1000

var (
	// Paired dangerous blocks go first so their contents disappear with them.
	blockRe = regexp.MustCompile(`(?is)<(?:script|iframe|object|embed)\b[^>]*>.*?</(?:script|iframe|object|embed)\s*>`)
	// Unclosed opening tags of the same elements.
	openTagRe = regexp.MustCompile(`(?i)<(?:script|iframe|object|embed)\b[^>]*>`)
	// Inline event-handler attributes, e.g. onclick="...".
	handlerRe = regexp.MustCompile(`(?i)\son\w+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)
	// Executable URI schemes.
	schemeRe = regexp.MustCompile(`(?i)(?:javascript|vbscript|data)\s*:`)
	// Entities our own encoder emits; these are skipped on re-encode so
	// sanitizing already-sanitized text is a no-op.
	entityRe = regexp.MustCompile(`^&(?:amp|lt|gt|quot|#x27|#x2F|#\d+);`)
)

// SanitizeInput trims, truncates and defuses free-text input. Stripping runs
// before entity encoding; the reverse order would encode the brackets of a
// script tag and then fail to strip it.
func SanitizeInput(input string, opts SanitizeOptions) string {
	out := strings.TrimSpace(input)

	maxLen := opts.MaxLength
	if maxLen <= 0 {
		maxLen = defaultMaxLength
	}
	if runes := []rune(out); len(runes) > maxLen {
		out = string(runes[:maxLen])
	}

	if opts.AllowHTML {
		return out
	}

	out = blockRe.ReplaceAllString(out, "")
	out = openTagRe.ReplaceAllString(out, "")
	out = handlerRe.ReplaceAllString(out, "")
	out = schemeRe.ReplaceAllString(out, "")
	out = strings.ReplaceAll(out, "<", "")
	out = strings.ReplaceAll(out, ">", "")

	return encodeEntities(out)
}

// encodeEntities HTML-encodes & " ' and /, leaving existing entities alone.
func encodeEntities(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		switch c {
		case '&':
			if loc := entityRe.FindStringIndex(s[i:]); loc != nil {
				b.WriteString(s[i : i+loc[1]])
				i += loc[1]
				continue
			}
			b.WriteString("&amp;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#x27;")
		case '/':
			b.WriteString("&#x2F;")
		default:
			b.WriteByte(c)
		}
		i++
	}
	return b.String()
}
