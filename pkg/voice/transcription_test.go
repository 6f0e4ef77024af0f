package voice

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/harunnryd/vocalis/pkg/errorsx"
	"github.com/harunnryd/vocalis/pkg/metrics"
	"github.com/harunnryd/vocalis/pkg/providers/mock"
	"github.com/harunnryd/vocalis/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestTranscribeZeroByteArtifactNeverCallsProvider(t *testing.T) {
	provider := mock.NewSTT(mock.STTConfig{Transcript: "hello"})
	svc := NewTranscriptionService(TranscriptionOptions{Transcriber: provider})

	out := svc.Transcribe(context.Background(), writeFile(t, "input.mp3", nil))

	assert.False(t, out.OK())
	assert.Equal(t, TranscriptionInvalid, out.Status)
	assert.Equal(t, errorsx.ReasonSTTValidation, out.Reason)
	assert.Empty(t, out.Text)
	assert.Zero(t, provider.Calls())
}

func TestTranscribeMissingArtifactNeverCallsProvider(t *testing.T) {
	provider := mock.NewSTT(mock.STTConfig{})
	svc := NewTranscriptionService(TranscriptionOptions{Transcriber: provider})

	out := svc.Transcribe(context.Background(), filepath.Join(t.TempDir(), "absent.mp3"))

	assert.Equal(t, TranscriptionInvalid, out.Status)
	assert.Zero(t, provider.Calls())
}

func TestTranscribeRecognized(t *testing.T) {
	provider := mock.NewSTT(mock.STTConfig{Transcript: "turn on the lights"})
	obs := metrics.NewMemoryObserver()
	svc := NewTranscriptionService(TranscriptionOptions{
		Transcriber: provider,
		Model:       "whisper-large-v3",
		Language:    "en",
		Observer:    obs,
	})
	path := writeFile(t, "input.mp3", []byte("ID3"))

	out := svc.Transcribe(context.Background(), path)

	require.True(t, out.OK())
	assert.Equal(t, "turn on the lights", out.Text)
	assert.Equal(t, "mock_stt", out.Provider)
	require.Len(t, provider.Requests(), 1)
	req := provider.Requests()[0]
	assert.Equal(t, path, req.Path)
	assert.Equal(t, "whisper-large-v3", req.Model)
	assert.Equal(t, "en", req.Language)
	assert.Equal(t, 1, obs.Count(metrics.EventTranscriptionComplete, map[string]string{"status": string(Recognized)}))
}

func TestTranscribeWithOverridesModel(t *testing.T) {
	provider := mock.NewSTT(mock.STTConfig{})
	svc := NewTranscriptionService(TranscriptionOptions{Transcriber: provider, Model: "whisper-large-v3"})

	out := svc.TranscribeWith(context.Background(), "distil-whisper-large-v3-en", writeFile(t, "input.mp3", []byte("ID3")))

	require.True(t, out.OK())
	assert.Equal(t, "distil-whisper-large-v3-en", provider.Requests()[0].Model)
}

func TestTranscribeProviderFailureIsReported(t *testing.T) {
	provider := mock.NewSTT(mock.STTConfig{Err: resilience.AuthError{Provider: "groq", StatusCode: 401}})
	svc := NewTranscriptionService(TranscriptionOptions{Transcriber: provider})

	out := svc.Transcribe(context.Background(), writeFile(t, "input.mp3", []byte("ID3")))

	assert.Equal(t, TranscriptionFailed, out.Status)
	assert.Equal(t, errorsx.ReasonSTTTranscribe, out.Reason)
	assert.True(t, resilience.IsAuth(out.Err))
	assert.Equal(t, 1, provider.Calls())

	var states []State
	for _, ev := range out.Trace {
		states = append(states, ev.ToState)
	}
	assert.Equal(t, []State{StateValidating, StateConsuming, StateFailed}, states)
}

func TestTranscribeWithoutProvider(t *testing.T) {
	out := NewTranscriptionService(TranscriptionOptions{}).Transcribe(context.Background(), writeFile(t, "input.mp3", []byte("ID3")))
	assert.Equal(t, TranscriptionFailed, out.Status)
	assert.Error(t, out.Err)
	assert.Equal(t, errorsx.ReasonConfigMissingCredential, out.Reason)
}
