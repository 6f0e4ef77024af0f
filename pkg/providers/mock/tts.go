package mock

import (
	"context"
	"sync"

	"github.com/harunnryd/vocalis/pkg/adapters/tts"
)

// SilentMP3 is a single MPEG-1 Layer III frame header followed by padding.
var SilentMP3 = append([]byte{0xFF, 0xFB, 0x90, 0x64}, make([]byte, 413)...)

type TTSConfig struct {
	// Name defaults to "mock_tts".
	Name string
	// Audio is returned by every successful call; nil means SilentMP3.
	// Set Empty to return zero bytes instead.
	Audio []byte
	Empty bool
	// Err is returned by Synthesize.
	Err error
	// NotReady is returned by Ready.
	NotReady error
}

// Synthesizer is a scripted tts.Synthesizer that counts its invocations.
type Synthesizer struct {
	cfg   TTSConfig
	mu    sync.Mutex
	calls int
	texts []string
}

func NewTTS(cfg TTSConfig) *Synthesizer {
	if cfg.Name == "" {
		cfg.Name = "mock_tts"
	}
	if cfg.Audio == nil && !cfg.Empty {
		cfg.Audio = SilentMP3
	}
	return &Synthesizer{cfg: cfg}
}

func (s *Synthesizer) Name() string { return s.cfg.Name }

func (s *Synthesizer) Ready() error { return s.cfg.NotReady }

func (s *Synthesizer) Synthesize(ctx context.Context, req tts.Request) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	s.texts = append(s.texts, req.Text)
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.cfg.Err != nil {
		return nil, s.cfg.Err
	}
	if s.cfg.Empty {
		return []byte{}, nil
	}
	out := make([]byte, len(s.cfg.Audio))
	copy(out, s.cfg.Audio)
	return out, nil
}

// Calls returns how many times Synthesize ran.
func (s *Synthesizer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Texts returns every text passed to Synthesize.
func (s *Synthesizer) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

var _ tts.Synthesizer = (*Synthesizer)(nil)
