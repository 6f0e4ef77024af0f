package metrics

import "time"

// Event names emitted by the voice pipelines.
const (
	EventSynthesisAttempt      = "synthesis_attempt"
	EventSynthesisComplete     = "synthesis_complete"
	EventPlayback              = "playback"
	EventCaptureComplete       = "capture_complete"
	EventTranscriptionComplete = "transcription_complete"
)

// Tag and field keys shared by the pipeline events.
const (
	TagRunID      = "run_id"
	TagProvider   = "provider"
	TagStatus     = "status"
	TagReason     = "reason"
	FieldChars    = "chars"
	FieldAudioSec = "audio_seconds"
	FieldBytes    = "size_bytes"
)

type MetricsEvent struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

type Observer interface {
	RecordEvent(ev MetricsEvent)
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(MetricsEvent) {}

// Record emits an event stamped with the current time. A nil observer is a no-op.
func Record(obs Observer, name string, value float64, tags map[string]string) {
	RecordFields(obs, name, value, tags, nil)
}

// RecordFields is Record with structured fields attached.
func RecordFields(obs Observer, name string, value float64, tags map[string]string, fields map[string]any) {
	if obs == nil {
		return
	}
	obs.RecordEvent(MetricsEvent{Name: name, Time: time.Now(), Value: value, Tags: tags, Fields: fields})
}

// Elapsed returns milliseconds since start, the unit used for latency values.
func Elapsed(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
