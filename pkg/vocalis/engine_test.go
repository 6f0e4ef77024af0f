package vocalis

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harunnryd/vocalis/pkg/adapters/stt"
	"github.com/harunnryd/vocalis/pkg/audio"
	"github.com/harunnryd/vocalis/pkg/configutil"
	"github.com/harunnryd/vocalis/pkg/errorsx"
	"github.com/harunnryd/vocalis/pkg/metrics"
	"github.com/harunnryd/vocalis/pkg/providers/mock"
	"github.com/harunnryd/vocalis/pkg/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPlayer struct{ calls int }

func (p *recordingPlayer) Play(context.Context, string) audio.PlaybackOutcome {
	p.calls++
	return audio.PlaybackOutcome{Status: audio.PlaybackPlayed}
}

type silentStream struct{ *bytes.Reader }

func (silentStream) Format() audio.Format { return audio.DefaultFormat }
func (silentStream) Close() error         { return nil }

type silentMic struct{}

func (silentMic) Open(context.Context) (audio.Stream, error) {
	return silentStream{bytes.NewReader(make([]byte, 200*1024*2))}, nil
}

type noTranscoder struct{}

func (noTranscoder) Convert(context.Context, string, string, string) error {
	return errors.New("transcoder must not run")
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Capture.IntermediateDir = t.TempDir()
	cfg.Capture.CalibrationMS = 0
	cfg.Capture.DynamicEnergy = false
	cfg.Privacy.RedactPII = false
	return cfg
}

func TestNewFailsWithoutTranscriptionCredential(t *testing.T) {
	cfg := testConfig(t)
	cfg.Credentials = Credentials{ElevenLabsAPIKey: "xi_test"}

	_, err := New(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Contains(t, err.Error(), "groq")
}

func TestNewFailsWithoutDeepgramCredential(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transcription = VendorConfig{Provider: "deepgram"}
	cfg.Credentials = Credentials{GroqAPIKey: "gsk_test"}

	_, err := New(cfg)
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestNewSucceedsWithoutSynthesisCredential(t *testing.T) {
	cfg := testConfig(t)
	cfg.Credentials = Credentials{GroqAPIKey: "gsk_test"}

	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Close()
	assert.Equal(t, "gsk_test", e.Config().Credentials.GroqAPIKey)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Credentials.GroqAPIKey = "gsk_test"
	cfg.Synthesis.Providers = []VendorConfig{{Provider: "polly"}}

	_, err := New(cfg)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingCredential)
	assert.Contains(t, err.Error(), "tts provider not registered: polly (available: elevenlabs, gtts, mock)")
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	cfg := testConfig(t)
	cfg.Credentials.GroqAPIKey = "gsk_test"
	cfg.Synthesis.Providers = []VendorConfig{{Provider: "gtts", Settings: map[string]any{"voice": "en-GB"}}}

	_, err := New(cfg)
	require.Error(t, err)
	assert.Equal(t, errorsx.ReasonConfigInvalid, errorsx.Reason(err))
	assert.Contains(t, err.Error(), "gtts settings: unknown: voice")
}

func TestEngineSpeakFallsBackThroughMockChain(t *testing.T) {
	cfg := testConfig(t)
	cfg.Synthesis.Providers = []VendorConfig{
		{Provider: "mock", Settings: map[string]any{"name": "elevenlabs", "not_ready": "ELEVENLABS_API_KEY is missing"}},
		{Provider: "mock", Settings: map[string]any{"name": "gtts", "audio": "ID3-free"}},
	}
	cfg.Transcription = VendorConfig{Provider: "mock"}
	cfg.Observability.ArtifactsDir = t.TempDir()
	cfg.Observability.MetricsPath = filepath.Join(t.TempDir(), "metrics.jsonl")
	player := &recordingPlayer{}
	obs := metrics.NewMemoryObserver()

	e, err := NewEngine(EngineOptions{Config: cfg, Player: player, Observer: obs})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "output.mp3")
	out := e.Speak(context.Background(), "Hi, this is Manjari!", path)

	require.Equal(t, voice.SynthesisPlayed, out.Status)
	assert.Equal(t, "gtts", out.Provider)
	assert.Equal(t, 1, player.calls)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ID3-free", string(data))
	assert.Equal(t, 1, obs.Count(metrics.EventSynthesisAttempt, map[string]string{"provider": "elevenlabs", "status": "skipped"}))

	usage := e.Usage()
	require.Len(t, usage.Providers, 2)

	require.NoError(t, e.Close())
	_, err = os.Stat(filepath.Join(cfg.Observability.ArtifactsDir, out.RunID+".jsonl"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(cfg.Observability.ArtifactsDir, "usage.json"))
	assert.NoError(t, err)
	info, err := os.Stat(cfg.Observability.MetricsPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestEngineListenTimeoutSkipsTranscription(t *testing.T) {
	cfg := testConfig(t)
	cfg.Capture.TimeoutMS = 1000
	cfg.Transcription = VendorConfig{Provider: "mock"}

	provider := mock.NewSTT(mock.STTConfig{Transcript: "should not be used"})
	reg := DefaultProviders()
	reg.RegisterTranscriber("mock", func(Config, VendorConfig) (stt.Transcriber, error) {
		return provider, nil
	})

	e, err := NewEngine(EngineOptions{
		Config:     cfg,
		Providers:  reg,
		Microphone: silentMic{},
		Transcoder: noTranscoder{},
		Player:     &recordingPlayer{},
	})
	require.NoError(t, err)
	defer e.Close()

	path := filepath.Join(t.TempDir(), "input.mp3")
	captured, transcribed := e.Listen(context.Background(), path)

	assert.Equal(t, voice.CaptureTimedOut, captured.Status)
	assert.Equal(t, voice.TranscriptionInvalid, transcribed.Status)
	assert.Zero(t, provider.Calls())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestEngineTranscribeWithMockProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transcription = VendorConfig{Provider: "mock", Settings: map[string]any{"transcript": "hello there"}}

	e, err := NewEngine(EngineOptions{Config: cfg, Player: &recordingPlayer{}})
	require.NoError(t, err)
	defer e.Close()

	path := filepath.Join(t.TempDir(), "input.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3"), 0o644))

	out := e.Transcribe(context.Background(), path)
	require.True(t, out.OK())
	assert.Equal(t, "hello there", out.Text)
}

func TestEnginePlaybackDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Playback.Disabled = true
	cfg.Synthesis.Providers = []VendorConfig{{Provider: "mock"}}
	cfg.Transcription = VendorConfig{Provider: "mock"}

	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Close()

	out := e.Speak(context.Background(), "hello", filepath.Join(t.TempDir(), "output.mp3"))
	assert.Equal(t, voice.SynthesisSaved, out.Status)
	assert.Equal(t, errorsx.ReasonPlaybackDisabled, out.Playback.Reason)
}

func TestCaptureOptionsFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Transcription = VendorConfig{Provider: "mock"}
	cfg.Capture.PhraseLimitMS = 5000

	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Close()

	opts := e.CaptureOptions()
	assert.Equal(t, "128k", opts.Bitrate)
	assert.Equal(t, int64(20000), opts.Timeout.Milliseconds())
	assert.Equal(t, int64(5000), opts.PhraseLimit.Milliseconds())
}

func TestRegistryListsBuiltins(t *testing.T) {
	reg := DefaultProviders()
	assert.Equal(t, []string{"elevenlabs", "gtts", "mock"}, reg.Synthesizers())
	assert.Equal(t, []string{"deepgram", "groq", "mock"}, reg.Transcribers())
}

func TestProviderSettingsDecodeDurations(t *testing.T) {
	var settings gttsSettings
	require.NoError(t, configutil.DecodeSettings(map[string]any{"language": "en", "timeout": "750ms"}, &settings))
	assert.Equal(t, 750*time.Millisecond, settings.Timeout)

	cfg := testConfig(t)
	cfg.Credentials.GroqAPIKey = "gsk_test"
	cfg.Synthesis.Providers = []VendorConfig{
		{Provider: "elevenlabs", Settings: map[string]any{"timeout": "2s"}},
		{Provider: "gtts", Settings: map[string]any{"timeout": "5s"}},
	}
	e, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, e.Close())

	cfg.Synthesis.Providers = []VendorConfig{{Provider: "gtts", Settings: map[string]any{"timeout": "soon"}}}
	_, err = New(cfg)
	require.Error(t, err)
}
