package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChunk = 1024

type pcmStream struct {
	*bytes.Reader
	format Format
}

func (s *pcmStream) Format() Format { return s.format }
func (s *pcmStream) Close() error   { return nil }

func newStream(pcm []byte) *pcmStream {
	return &pcmStream{Reader: bytes.NewReader(pcm), format: DefaultFormat}
}

// tone returns n chunks of constant-amplitude samples.
func tone(chunks int, amplitude int16) []byte {
	out := make([]byte, chunks*testChunk*2)
	for i := 0; i < len(out); i += 2 {
		binary.LittleEndian.PutUint16(out[i:], uint16(amplitude))
	}
	return out
}

func concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func staticRecognizer() *Recognizer {
	cfg := DefaultRecognizerConfig()
	cfg.DynamicEnergy = false
	return NewRecognizer(cfg)
}

func TestRMS(t *testing.T) {
	assert.Zero(t, RMS(nil))
	assert.Zero(t, RMS(tone(1, 0)))
	assert.InDelta(t, 1000, RMS(tone(1, 1000)), 0.001)
	assert.InDelta(t, 1000, RMS(tone(1, -1000)), 0.001)
}

func TestListenReturnsTrimmedPhrase(t *testing.T) {
	// 16 kHz with 1024-frame chunks: 0.064 s per chunk.
	// pause 0.8 s = 13 chunks, non-speaking 0.5 s = 8 chunks, phrase 0.3 s = 5 chunks.
	silence := tone(20, 0)
	speech := tone(10, 5000)
	trailing := tone(30, 0)

	r := staticRecognizer()
	pcm, err := r.Listen(context.Background(), newStream(concat(silence, speech, trailing)), 0, 0)
	require.NoError(t, err)

	chunkBytes := testChunk * 2
	require.Zero(t, len(pcm)%chunkBytes)
	chunks := len(pcm) / chunkBytes
	// 8 leading chunks kept (7 of silence + the first loud one), 9 more loud
	// chunks, 8 trailing silence chunks.
	assert.Equal(t, 8+9+8, chunks)
	assert.InDelta(t, 5000, RMS(pcm[7*chunkBytes:8*chunkBytes]), 0.001)
	assert.Zero(t, RMS(pcm[:chunkBytes]))
	assert.Zero(t, RMS(pcm[len(pcm)-chunkBytes:]))
}

func TestListenWaitTimeout(t *testing.T) {
	r := staticRecognizer()
	_, err := r.Listen(context.Background(), newStream(tone(100, 0)), time.Second, 0)
	assert.ErrorIs(t, err, ErrWaitTimeout)
}

func TestListenStreamEndsBeforeSpeech(t *testing.T) {
	r := staticRecognizer()
	_, err := r.Listen(context.Background(), newStream(tone(5, 0)), 0, 0)
	assert.ErrorIs(t, err, ErrStreamEnded)
	assert.NotErrorIs(t, err, ErrWaitTimeout)
}

func TestListenEmptyStreamIsNotATimeout(t *testing.T) {
	r := staticRecognizer()
	_, err := r.Listen(context.Background(), newStream(nil), 20*time.Second, 0)
	assert.ErrorIs(t, err, ErrStreamEnded)
	assert.NotErrorIs(t, err, ErrWaitTimeout)
}

func TestListenPhraseLimit(t *testing.T) {
	r := staticRecognizer()
	pcm, err := r.Listen(context.Background(), newStream(tone(200, 5000)), 0, time.Second)
	require.NoError(t, err)

	chunks := len(pcm) / (testChunk * 2)
	// one trigger chunk plus about one second of continued speech
	assert.InDelta(t, 1+15, chunks, 1)
}

func TestListenDiscardsShortBlip(t *testing.T) {
	blip := tone(2, 5000)
	gap := tone(20, 0)
	speech := tone(10, 4000)
	trailing := tone(30, 0)

	r := staticRecognizer()
	pcm, err := r.Listen(context.Background(), newStream(concat(blip, gap, speech, trailing)), 0, 0)
	require.NoError(t, err)
	for i := 0; i+testChunk*2 <= len(pcm); i += testChunk * 2 {
		assert.NotEqual(t, 5000.0, RMS(pcm[i:i+testChunk*2]))
	}
}

func TestListenHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := staticRecognizer().Listen(ctx, newStream(tone(10, 0)), 0, 0)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCalibrateRaisesThresholdTowardsAmbient(t *testing.T) {
	r := NewRecognizer(DefaultRecognizerConfig())
	require.NoError(t, r.Calibrate(newStream(tone(40, 2000)), time.Second))
	assert.Greater(t, r.Threshold(), 300.0)
	assert.Less(t, r.Threshold(), 3000.0)
}

func TestCalibrateEmptyStream(t *testing.T) {
	err := NewRecognizer(DefaultRecognizerConfig()).Calibrate(newStream(nil), time.Second)
	assert.ErrorIs(t, err, ErrStreamEnded)
}

func TestNewRecognizerDefaults(t *testing.T) {
	r := NewRecognizer(RecognizerConfig{})
	def := DefaultRecognizerConfig()
	assert.Equal(t, def.EnergyThreshold, r.Threshold())
	assert.Equal(t, def.PauseThreshold, r.cfg.PauseThreshold)
	assert.Equal(t, def.ChunkFrames, r.cfg.ChunkFrames)
}
