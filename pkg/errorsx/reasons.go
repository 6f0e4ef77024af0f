package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonConfigMissingCredential ReasonCode = "config_missing_credential"
	ReasonConfigInvalid           ReasonCode = "config_invalid"

	ReasonTTSAuth        ReasonCode = "tts_auth"
	ReasonTTSRateLimit   ReasonCode = "tts_rate_limit"
	ReasonTTSSynthesize  ReasonCode = "tts_synthesize"
	ReasonTTSArtifact    ReasonCode = "tts_artifact"
	ReasonTTSCircuitOpen ReasonCode = "tts_circuit_open"

	ReasonPlaybackUnsupported ReasonCode = "playback_unsupported"
	ReasonPlaybackFailed      ReasonCode = "playback_failed"
	ReasonPlaybackDisabled    ReasonCode = "playback_disabled"

	ReasonCaptureDevice  ReasonCode = "capture_device"
	ReasonCaptureTimeout ReasonCode = "capture_timeout"
	ReasonCaptureEncode  ReasonCode = "capture_encode"

	ReasonSTTValidation ReasonCode = "stt_validation"
	ReasonSTTTranscribe ReasonCode = "stt_transcribe"
)
