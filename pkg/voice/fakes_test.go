package voice

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"sync"

	"github.com/harunnryd/vocalis/pkg/audio"
)

type fakePlayer struct {
	mu      sync.Mutex
	paths   []string
	outcome audio.PlaybackOutcome
}

func (p *fakePlayer) Play(_ context.Context, path string) audio.PlaybackOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, path)
	if p.outcome.Status == "" {
		return audio.PlaybackOutcome{Status: audio.PlaybackPlayed}
	}
	return p.outcome
}

func (p *fakePlayer) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.paths)
}

type pcmStream struct {
	*bytes.Reader
	closed bool
}

func (s *pcmStream) Format() audio.Format { return audio.DefaultFormat }
func (s *pcmStream) Close() error         { s.closed = true; return nil }

type fakeMic struct {
	pcm    []byte
	err    error
	stream *pcmStream
}

func (m *fakeMic) Open(context.Context) (audio.Stream, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.stream = &pcmStream{Reader: bytes.NewReader(m.pcm)}
	return m.stream, nil
}

type fakeTranscoder struct {
	output []byte
	err    error
	// partial is written to dst before err is returned.
	partial bool
	calls   int
	src     string
}

func (f *fakeTranscoder) Convert(_ context.Context, src, dst, _ string) error {
	f.calls++
	f.src = src
	if f.err != nil {
		if f.partial {
			_ = os.WriteFile(dst, []byte("partial"), 0o644)
		}
		return f.err
	}
	return os.WriteFile(dst, f.output, 0o644)
}

const chunkFrames = 1024

// tone returns chunks of 1024 frames at a constant amplitude.
func tone(chunks int, amplitude int16) []byte {
	out := make([]byte, chunks*chunkFrames*2)
	for i := 0; i < len(out); i += 2 {
		binary.LittleEndian.PutUint16(out[i:], uint16(amplitude))
	}
	return out
}

func spokenPhrase() []byte {
	return bytes.Join([][]byte{tone(10, 0), tone(10, 6000), tone(30, 0)}, nil)
}
