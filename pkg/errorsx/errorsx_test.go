package errorsx

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonSTTTranscribe)
	if Reason(err) != ReasonSTTTranscribe {
		t.Fatalf("expected reason %s, got %s", ReasonSTTTranscribe, Reason(err))
	}
	if !HasReason(err, ReasonSTTTranscribe) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonTTSAuth)
	second := Wrap(first, ReasonTTSSynthesize)
	if Reason(second) != ReasonTTSAuth {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestReasonSurvivesFmtWrap(t *testing.T) {
	err := fmt.Errorf("capture: %w", Wrap(assertErr{}, ReasonCaptureTimeout))
	if Reason(err) != ReasonCaptureTimeout {
		t.Fatalf("expected reason through fmt wrap, got %s", Reason(err))
	}
	if !errors.Is(err, assertErr{}) {
		t.Fatalf("expected unwrap to reach the cause")
	}
}

func TestReasonNil(t *testing.T) {
	if Reason(nil) != ReasonUnknown {
		t.Fatalf("expected unknown for nil")
	}
	if Wrap(nil, ReasonTTSAuth) != nil {
		t.Fatalf("expected nil passthrough")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestNewfFormats(t *testing.T) {
	err := Newf(ReasonTTSSynthesize, "gtts status %d", 503)
	if err.Error() != "gtts status 503" || Reason(err) != ReasonTTSSynthesize {
		t.Fatalf("unexpected error %q reason %s", err, Reason(err))
	}
}

func TestCategories(t *testing.T) {
	cases := map[ReasonCode]Category{
		ReasonConfigMissingCredential: CategoryConfiguration,
		ReasonConfigInvalid:           CategoryConfiguration,
		ReasonTTSAuth:                 CategoryProvider,
		ReasonTTSCircuitOpen:          CategoryProvider,
		ReasonSTTTranscribe:           CategoryProvider,
		ReasonTTSArtifact:             CategoryArtifact,
		ReasonSTTValidation:           CategoryArtifact,
		ReasonCaptureEncode:           CategoryArtifact,
		ReasonCaptureTimeout:          CategoryTimeout,
		ReasonCaptureDevice:           CategoryPlatform,
		ReasonPlaybackUnsupported:     CategoryPlatform,
		ReasonUnknown:                 CategoryUnknown,
	}
	for reason, want := range cases {
		if got := reason.Category(); got != want {
			t.Errorf("%s: expected %s, got %s", reason, want, got)
		}
	}
	if got := CategoryOf(fmt.Errorf("outer: %w", New(ReasonTTSAuth, "401"))); got != CategoryProvider {
		t.Fatalf("expected provider category through wrap, got %s", got)
	}
}

func TestHint(t *testing.T) {
	if Hint(ReasonTTSAuth) != "disable VPN or upgrade to a paid plan" {
		t.Fatalf("unexpected auth hint %q", Hint(ReasonTTSAuth))
	}
	if Hint(ReasonSTTTranscribe) != "" {
		t.Fatalf("expected no hint")
	}
}
