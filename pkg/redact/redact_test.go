package redact

import (
	"strings"
	"testing"
)

func TestRedactDisabled(t *testing.T) {
	SetEnabled(false)
	in := "email a@b.com and phone +62 812 3456 7890"
	if got := Text(in); got != in {
		t.Fatalf("expected no redaction, got %q", got)
	}
}

func TestRedactEnabled(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)
	in := "email a@b.com and phone +62 812 3456 7890"
	got := Text(in)
	if got == in {
		t.Fatalf("expected redaction")
	}
	if want := "[REDACTED_EMAIL]"; !strings.Contains(got, want) {
		t.Fatalf("expected %q in output", want)
	}
	if want := "[REDACTED_PHONE]"; !strings.Contains(got, want) {
		t.Fatalf("expected %q in output", want)
	}
}

func TestPreviewTruncatesRunes(t *testing.T) {
	SetEnabled(false)
	if got := Preview("Hi, this is Manjari!", 8); got != "Hi, this..." {
		t.Fatalf("unexpected preview %q", got)
	}
	if got := Preview("héllo", 10); got != "héllo" {
		t.Fatalf("short input should pass through, got %q", got)
	}
}

func TestProviderKeysAlwaysMasked(t *testing.T) {
	SetEnabled(false)
	in := "dial failed with key gsk_abcdefghijklmnop1234 for a@b.com"
	got := Text(in)
	if strings.Contains(got, "gsk_") {
		t.Fatalf("expected key masked, got %q", got)
	}
	if !strings.Contains(got, "[REDACTED_KEY]") || !strings.Contains(got, "a@b.com") {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestSecret(t *testing.T) {
	cases := map[string]string{
		"":                         "unset",
		"short":                    "****",
		"gsk_abcdefghijklmnop1234": "****1234",
	}
	for in, want := range cases {
		if got := Secret(in); got != want {
			t.Errorf("Secret(%q) = %q, want %q", in, got, want)
		}
	}
}
