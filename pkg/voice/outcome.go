package voice

import (
	"time"

	"github.com/harunnryd/vocalis/pkg/audio"
	"github.com/harunnryd/vocalis/pkg/errorsx"
)

// SynthesisStatus is the terminal result of one synthesis call.
type SynthesisStatus string

const (
	// SynthesisPlayed means an artifact was produced and played.
	SynthesisPlayed SynthesisStatus = "played"
	// SynthesisSaved means an artifact was produced but playback was skipped.
	SynthesisSaved SynthesisStatus = "saved"
	// SynthesisFailed means every strategy was exhausted.
	SynthesisFailed SynthesisStatus = "failed"
)

// AttemptStatus records what happened to one strategy in the chain.
type AttemptStatus string

const (
	AttemptSucceeded AttemptStatus = "succeeded"
	AttemptSkipped   AttemptStatus = "skipped"
	AttemptFailed    AttemptStatus = "failed"
)

type Attempt struct {
	Provider string
	Status   AttemptStatus
	Reason   errorsx.ReasonCode
	Err      error
}

// SynthesisOutcome describes a Synthesize call. Artifact is set whenever
// Status is not SynthesisFailed.
type SynthesisOutcome struct {
	RunID    string
	Status   SynthesisStatus
	Provider string
	Artifact *audio.Artifact
	Attempts []Attempt
	Playback audio.PlaybackOutcome
	Trace    []StateChange
}

// OK reports whether an artifact exists at the requested path.
func (o SynthesisOutcome) OK() bool { return o.Status != SynthesisFailed }

// CaptureStatus is the terminal result of one capture call.
type CaptureStatus string

const (
	Captured           CaptureStatus = "captured"
	CaptureTimedOut    CaptureStatus = "timed_out"
	CaptureDeviceError CaptureStatus = "device_error"
	CaptureEncodeError CaptureStatus = "encode_error"
)

// CaptureOutcome describes a Capture call. Artifact is set only when Status
// is Captured. IntermediatePath names the lossless file kept after a failed
// transcode. Duration is the length of the recorded phrase.
type CaptureOutcome struct {
	RunID            string
	Status           CaptureStatus
	Artifact         *audio.Artifact
	IntermediatePath string
	Duration         time.Duration
	Reason           errorsx.ReasonCode
	Err              error
	Trace            []StateChange
}

// OK reports whether a compressed artifact was produced.
func (o CaptureOutcome) OK() bool { return o.Status == Captured }

// TranscriptionStatus is the terminal result of one transcription call.
type TranscriptionStatus string

const (
	Recognized           TranscriptionStatus = "recognized"
	TranscriptionInvalid TranscriptionStatus = "invalid"
	TranscriptionFailed  TranscriptionStatus = "failed"
)

// TranscriptionOutcome carries either the recognized text or the reason no
// text is available.
type TranscriptionOutcome struct {
	RunID    string
	Status   TranscriptionStatus
	Text     string
	Provider string
	Reason   errorsx.ReasonCode
	Err      error
	Trace    []StateChange
}

// OK reports whether Text holds a transcript.
func (o TranscriptionOutcome) OK() bool { return o.Status == Recognized }
