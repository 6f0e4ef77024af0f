package gtts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/harunnryd/vocalis/pkg/adapters/tts"
	"github.com/harunnryd/vocalis/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batchResponse(audio []byte) string {
	b64 := base64.StdEncoding.EncodeToString(audio)
	return ")]}'\n\n" + `[["wrb.fr","jQ1olc","[\"` + b64 + `\"]",null,null,null,"generic"],["di",42]]` + "\n"
}

func TestSynthesizeSingleToken(t *testing.T) {
	var mu sync.Mutex
	var params [][]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, rpcPath, r.URL.Path)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
		assert.Equal(t, "http://"+r.Host+"/", r.Header.Get("Referer"))
		assert.NoError(t, r.ParseForm())

		var rpc [][][]any
		assert.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("f.req")), &rpc))
		var p []any
		assert.NoError(t, json.Unmarshal([]byte(rpc[0][0][1].(string)), &p))
		mu.Lock()
		params = append(params, p)
		mu.Unlock()

		fmt.Fprint(w, batchResponse([]byte("ID3audio")))
	}))
	defer srv.Close()

	g := New(Config{BaseURL: srv.URL})
	audio, err := g.Synthesize(context.Background(), tts.Request{Text: "Hi, this is Manjari!"})
	require.NoError(t, err)
	assert.Equal(t, "ID3audio", string(audio))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, params, 1)
	assert.Equal(t, []any{"Hi, this is Manjari!", "en", nil, "null"}, params[0])
}

func TestSynthesizeConcatenatesTokens(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		fmt.Fprint(w, batchResponse([]byte(fmt.Sprintf("seg%d;", n))))
	}))
	defer srv.Close()

	text := strings.Repeat("word ", 30) + ". " + strings.Repeat("more ", 10)
	audio, err := New(Config{BaseURL: srv.URL, Slow: true}).Synthesize(context.Background(), tts.Request{Text: text})
	require.NoError(t, err)
	assert.Equal(t, len(Tokenize(text)), calls)
	assert.True(t, strings.HasPrefix(string(audio), "seg1;seg2;"))
}

func TestSynthesizeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).Synthesize(context.Background(), tts.Request{Text: "hello"})
	require.Error(t, err)
	assert.True(t, resilience.IsRateLimit(err))

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ")]}'\n\n[[\"di\",12]]\n")
	}))
	defer empty.Close()
	_, err = New(Config{BaseURL: empty.URL}).Synthesize(context.Background(), tts.Request{Text: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no audio")

	_, err = New(Config{BaseURL: empty.URL}).Synthesize(context.Background(), tts.Request{Text: " ?! "})
	require.Error(t, err)
}

func TestNewClientTimeout(t *testing.T) {
	assert.Same(t, http.DefaultClient, New(Config{}).client)
	assert.Equal(t, 5*time.Second, New(Config{Timeout: 5 * time.Second}).client.Timeout)
}

func TestTokenizeRespectsLimit(t *testing.T) {
	assert.Equal(t, []string{"Hi, this is Manjari!"}, Tokenize("  Hi,   this is\nManjari! "))
	assert.Nil(t, Tokenize("...  "))

	long := strings.Repeat("antidisestablishment ", 12) + "end. Short one! " + strings.Repeat("x", 230)
	tokens := Tokenize(long)
	require.NotEmpty(t, tokens)
	for _, tok := range tokens {
		assert.LessOrEqual(t, utf8.RuneCountInString(tok), MaxTokenLength, tok)
		assert.NotEmpty(t, tok)
	}
	assert.Contains(t, tokens, "Short one!")
}
