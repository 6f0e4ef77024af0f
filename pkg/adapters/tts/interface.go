package tts

import "context"

// Synthesizer defines the contract for any text-to-speech vendor used in the
// fallback chain.
type Synthesizer interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Ready reports whether the adapter is configured to make a request
	// (credentials, voice). It must not touch the network.
	Ready() error
	// Synthesize renders the full utterance and returns encoded audio bytes.
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}

// Request is a single utterance to render.
type Request struct {
	Text string
}
