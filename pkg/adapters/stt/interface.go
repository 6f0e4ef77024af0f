package stt

import "context"

// Transcriber defines the contract for any file-based STT vendor implementation.
type Transcriber interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Transcribe uploads the audio file at req.Path and returns the recognized text.
	Transcribe(ctx context.Context, req Request) (string, error)
}

// Request contains vendor-agnostic transcription parameters.
type Request struct {
	Path     string
	Model    string
	Language string
}
