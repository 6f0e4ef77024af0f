package errorsx

import "strings"

// Category groups reasons by how the caller is expected to react.
type Category string

const (
	// CategoryConfiguration is fatal at startup when the credential is
	// mandatory and routes to fallback when it is optional.
	CategoryConfiguration Category = "configuration"
	CategoryProvider      Category = "provider"
	CategoryArtifact      Category = "artifact"
	CategoryPlatform      Category = "platform"
	CategoryTimeout       Category = "timeout"
	CategoryUnknown       Category = "unknown"
)

// Category classifies r by its prefix.
func (r ReasonCode) Category() Category {
	switch {
	case strings.HasPrefix(string(r), "config_"):
		return CategoryConfiguration
	case r == ReasonTTSArtifact, r == ReasonSTTValidation, r == ReasonCaptureEncode:
		return CategoryArtifact
	case r == ReasonCaptureTimeout:
		return CategoryTimeout
	case strings.HasPrefix(string(r), "playback_"), r == ReasonCaptureDevice:
		return CategoryPlatform
	case strings.HasPrefix(string(r), "tts_"), strings.HasPrefix(string(r), "stt_"):
		return CategoryProvider
	}
	return CategoryUnknown
}

// CategoryOf classifies the reason carried by err.
func CategoryOf(err error) Category {
	return Reason(err).Category()
}

var hints = map[ReasonCode]string{
	ReasonConfigMissingCredential: "export the provider API key or set api_key in its settings",
	ReasonTTSAuth:                 "disable VPN or upgrade to a paid plan",
	ReasonTTSRateLimit:            "wait for the quota window to reset or upgrade the plan",
	ReasonPlaybackUnsupported:     "open the saved file with a local player",
	ReasonCaptureDevice:           "check that ffmpeg can open the configured input device",
}

// Hint returns operator guidance for r, or "" when there is none.
func Hint(r ReasonCode) string {
	return hints[r]
}
