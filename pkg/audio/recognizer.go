package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

var (
	// ErrWaitTimeout means no speech started inside the listening window.
	ErrWaitTimeout = errors.New("listening timed out while waiting for phrase to start")
	// ErrStreamEnded means the device stopped delivering audio before a
	// phrase started.
	ErrStreamEnded = errors.New("audio stream ended before speech started")
)

// Stream is an open capture device delivering raw PCM in Format().
type Stream interface {
	io.Reader
	Format() Format
	Close() error
}

// RecognizerConfig tunes the energy-based endpointing.
type RecognizerConfig struct {
	// EnergyThreshold is the starting RMS level considered speech.
	EnergyThreshold float64
	// DynamicEnergy keeps adapting the threshold to ambient noise while waiting.
	DynamicEnergy bool
	// DynamicDamping is the fraction of the old threshold kept per second.
	DynamicDamping float64
	// DynamicRatio is the multiple of ambient energy treated as speech.
	DynamicRatio float64
	// PauseThreshold is the silence that ends a phrase.
	PauseThreshold time.Duration
	// PhraseThreshold is the minimum speech duration kept as a phrase.
	PhraseThreshold time.Duration
	// NonSpeakingDuration is the silence kept on both sides of a phrase.
	NonSpeakingDuration time.Duration
	// ChunkFrames is the number of frames read per buffer.
	ChunkFrames int
}

// DefaultRecognizerConfig returns the classic speech_recognition defaults.
func DefaultRecognizerConfig() RecognizerConfig {
	return RecognizerConfig{
		EnergyThreshold:     300,
		DynamicEnergy:       true,
		DynamicDamping:      0.15,
		DynamicRatio:        1.5,
		PauseThreshold:      800 * time.Millisecond,
		PhraseThreshold:     300 * time.Millisecond,
		NonSpeakingDuration: 500 * time.Millisecond,
		ChunkFrames:         1024,
	}
}

// Recognizer finds the start and end of one spoken phrase in a Stream.
// It is not safe for concurrent use.
type Recognizer struct {
	cfg       RecognizerConfig
	threshold float64
}

func NewRecognizer(cfg RecognizerConfig) *Recognizer {
	def := DefaultRecognizerConfig()
	if cfg.EnergyThreshold <= 0 {
		cfg.EnergyThreshold = def.EnergyThreshold
	}
	if cfg.DynamicDamping <= 0 || cfg.DynamicDamping >= 1 {
		cfg.DynamicDamping = def.DynamicDamping
	}
	if cfg.DynamicRatio <= 0 {
		cfg.DynamicRatio = def.DynamicRatio
	}
	if cfg.PauseThreshold <= 0 {
		cfg.PauseThreshold = def.PauseThreshold
	}
	if cfg.PhraseThreshold <= 0 {
		cfg.PhraseThreshold = def.PhraseThreshold
	}
	if cfg.NonSpeakingDuration <= 0 {
		cfg.NonSpeakingDuration = def.NonSpeakingDuration
	}
	if cfg.NonSpeakingDuration > cfg.PauseThreshold {
		cfg.NonSpeakingDuration = cfg.PauseThreshold
	}
	if cfg.ChunkFrames <= 0 {
		cfg.ChunkFrames = def.ChunkFrames
	}
	return &Recognizer{cfg: cfg, threshold: cfg.EnergyThreshold}
}

// Threshold returns the current speech energy threshold.
func (r *Recognizer) Threshold() float64 { return r.threshold }

// Calibrate listens to ambient noise for d and moves the threshold towards it.
func (r *Recognizer) Calibrate(s Stream, d time.Duration) error {
	spb := r.secondsPerBuffer(s.Format())
	elapsed := 0.0
	buf := make([]byte, r.chunkBytes(s.Format()))
	for {
		elapsed += spb
		if elapsed > d.Seconds() {
			return nil
		}
		n, err := r.read(s, buf)
		if n > 0 {
			r.adjust(RMS(buf[:n]), spb)
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("calibrate: %w", ErrStreamEnded)
		}
		if err != nil {
			return fmt.Errorf("calibrate: %w", err)
		}
	}
}

// Listen blocks until one phrase has been spoken and returns its PCM. The
// wait for speech to start is bounded by timeout and the phrase itself by
// phraseLimit; zero disables either bound.
func (r *Recognizer) Listen(ctx context.Context, s Stream, timeout, phraseLimit time.Duration) ([]byte, error) {
	format := s.Format()
	spb := r.secondsPerBuffer(format)
	pauseBuffers := int(math.Ceil(r.cfg.PauseThreshold.Seconds() / spb))
	phraseBuffers := int(math.Ceil(r.cfg.PhraseThreshold.Seconds() / spb))
	nonSpeakingBuffers := int(math.Ceil(r.cfg.NonSpeakingDuration.Seconds() / spb))
	chunkBytes := r.chunkBytes(format)

	elapsed := 0.0
	var frames [][]byte
	pauseCount := 0

	for {
		frames = frames[:0]

		// Wait for energy to cross the threshold.
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			elapsed += spb
			if timeout > 0 && elapsed > timeout.Seconds() {
				return nil, ErrWaitTimeout
			}
			buf := make([]byte, chunkBytes)
			n, err := r.read(s, buf)
			if errors.Is(err, io.EOF) && n == 0 {
				return nil, ErrStreamEnded
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("listen: %w", err)
			}
			buf = buf[:n]
			frames = append(frames, buf)
			if len(frames) > nonSpeakingBuffers {
				frames = frames[1:]
			}
			energy := RMS(buf)
			if energy > r.threshold {
				break
			}
			if r.cfg.DynamicEnergy {
				r.adjust(energy, spb)
			}
		}

		// Record until enough silence follows or the phrase limit is hit.
		pauseCount = 0
		phraseCount := 0
		phraseStart := elapsed
		ended := false
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			elapsed += spb
			if phraseLimit > 0 && elapsed-phraseStart > phraseLimit.Seconds() {
				break
			}
			buf := make([]byte, chunkBytes)
			n, err := r.read(s, buf)
			if n > 0 {
				buf = buf[:n]
				frames = append(frames, buf)
				phraseCount++
				if RMS(buf) > r.threshold {
					pauseCount = 0
				} else {
					pauseCount++
				}
			}
			if errors.Is(err, io.EOF) {
				ended = true
				break
			}
			if err != nil {
				return nil, fmt.Errorf("listen: %w", err)
			}
			if pauseCount > pauseBuffers {
				break
			}
		}

		phraseCount -= pauseCount
		if phraseCount >= phraseBuffers || ended {
			break
		}
	}

	// Drop silence beyond what is kept around the phrase.
	for i := 0; i < pauseCount-nonSpeakingBuffers && len(frames) > 0; i++ {
		frames = frames[:len(frames)-1]
	}

	size := 0
	for _, f := range frames {
		size += len(f)
	}
	out := make([]byte, 0, size)
	for _, f := range frames {
		out = append(out, f...)
	}
	return out, nil
}

func (r *Recognizer) adjust(energy, spb float64) {
	damping := math.Pow(r.cfg.DynamicDamping, spb)
	target := energy * r.cfg.DynamicRatio
	r.threshold = r.threshold*damping + target*(1-damping)
}

func (r *Recognizer) secondsPerBuffer(f Format) float64 {
	rate := f.SampleRate
	if rate <= 0 {
		rate = DefaultFormat.SampleRate
	}
	return float64(r.cfg.ChunkFrames) / float64(rate)
}

func (r *Recognizer) chunkBytes(f Format) int {
	bpf := f.BytesPerFrame()
	if bpf <= 0 {
		bpf = DefaultFormat.BytesPerFrame()
	}
	return r.cfg.ChunkFrames * bpf
}

// read fills buf, returning io.EOF once the stream is exhausted. A short
// final chunk is returned together with io.EOF.
func (r *Recognizer) read(s Stream, buf []byte) (int, error) {
	n, err := io.ReadFull(s, buf)
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		return n - n%2, io.EOF
	case err != nil:
		return n, err
	}
	return n, nil
}

// RMS returns the root mean square of signed 16-bit little-endian samples.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}
