package mock

import (
	"context"
	"sync"

	"github.com/harunnryd/vocalis/pkg/adapters/stt"
)

type STTConfig struct {
	Transcript string
	Err        error
}

// Transcriber is a scripted stt.Transcriber that records every request.
type Transcriber struct {
	cfg      STTConfig
	mu       sync.Mutex
	requests []stt.Request
}

func NewSTT(cfg STTConfig) *Transcriber {
	if cfg.Transcript == "" && cfg.Err == nil {
		cfg.Transcript = "mock transcript"
	}
	return &Transcriber{cfg: cfg}
}

func (s *Transcriber) Name() string { return "mock_stt" }

func (s *Transcriber) Transcribe(ctx context.Context, req stt.Request) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.cfg.Err != nil {
		return "", s.cfg.Err
	}
	return s.cfg.Transcript, nil
}

// Calls returns how many times Transcribe ran.
func (s *Transcriber) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns a copy of every request received.
func (s *Transcriber) Requests() []stt.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stt.Request(nil), s.requests...)
}

var _ stt.Transcriber = (*Transcriber)(nil)
