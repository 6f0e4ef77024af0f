package groq

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/harunnryd/vocalis/pkg/adapters/stt"
	"github.com/harunnryd/vocalis/pkg/errorsx"
	"github.com/harunnryd/vocalis/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patient.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3fake"), 0o644))
	return path
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Equal(t, errorsx.ReasonConfigMissingCredential, errorsx.Reason(err))
}

func TestTranscribeSendsModelAndLanguage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, DefaultModel, r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))

		f, hdr, err := r.FormFile("file")
		if assert.NoError(t, err) {
			defer f.Close()
			body, _ := io.ReadAll(f)
			assert.Equal(t, "ID3fake", string(body))
			assert.Equal(t, "patient.mp3", hdr.Filename)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text":" I have a headache. "}`)
	}))
	defer srv.Close()

	tr, err := New(Config{APIKey: "gsk_test", BaseURL: srv.URL})
	require.NoError(t, err)
	text, err := tr.Transcribe(context.Background(), stt.Request{Path: writeAudio(t)})
	require.NoError(t, err)
	assert.Equal(t, "I have a headache.", text)
}

func TestTranscribeUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Invalid API Key","type":"invalid_request_error","code":"invalid_api_key"}}`)
	}))
	defer srv.Close()

	tr, err := New(Config{APIKey: "bad", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = tr.Transcribe(context.Background(), stt.Request{Path: writeAudio(t), Model: "whisper-large-v3-turbo"})
	require.Error(t, err)
	assert.True(t, resilience.IsAuth(err))
	assert.Equal(t, errorsx.ReasonSTTTranscribe, errorsx.Reason(err))
}

func TestTranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"file is empty","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	tr, err := New(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = tr.Transcribe(context.Background(), stt.Request{Path: writeAudio(t)})
	require.Error(t, err)
	assert.False(t, resilience.IsAuth(err))
	assert.Contains(t, err.Error(), "groq transcription")
}
