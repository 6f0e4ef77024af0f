// Package redact masks personal data and provider keys before they reach
// logs and timelines.
package redact

import (
	"regexp"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

var enabled atomic.Bool

var (
	emailRe = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phoneRe = regexp.MustCompile(`\b\+?\d[\d\s\-]{7,}\d\b`)
	// Groq keys start with gsk_, ElevenLabs keys with sk_; Deepgram keys are
	// 40 hex characters.
	keyRe = regexp.MustCompile(`\b(?:gsk_[A-Za-z0-9]{16,}|sk_[a-f0-9]{24,}|[a-f0-9]{40})\b`)
)

func SetEnabled(v bool) {
	enabled.Store(v)
}

func Enabled() bool {
	return enabled.Load()
}

// Text masks provider keys always, and emails and phone numbers when
// redaction is enabled. Transcripts and spoken text pass through here
// before being logged.
func Text(in string) string {
	if strings.TrimSpace(in) == "" {
		return in
	}
	out := keyRe.ReplaceAllString(in, "[REDACTED_KEY]")
	if !enabled.Load() {
		return out
	}
	out = emailRe.ReplaceAllString(out, "[REDACTED_EMAIL]")
	return phoneRe.ReplaceAllString(out, "[REDACTED_PHONE]")
}

// Preview redacts in and cuts it to at most max runes for log lines.
func Preview(in string, max int) string {
	out := Text(in)
	if max <= 0 || utf8.RuneCountInString(out) <= max {
		return out
	}
	r := []rune(out)
	return string(r[:max]) + "..."
}

// Secret renders a credential for logs: "unset", or the last four
// characters behind a mask.
func Secret(key string) string {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return "unset"
	case len(key) <= 8:
		return "****"
	}
	return "****" + key[len(key)-4:]
}
