// Package gtts speaks through the public Google Translate voice, the same
// endpoint the gTTS tool uses. It needs no credential.
package gtts

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/harunnryd/vocalis/pkg/adapters/tts"
	"github.com/harunnryd/vocalis/pkg/errorsx"
	"github.com/harunnryd/vocalis/pkg/logging"
	"github.com/harunnryd/vocalis/pkg/resilience"
)

const (
	DefaultBaseURL  = "https://translate.google.com"
	DefaultLanguage = "en"

	rpcID        = "jQ1olc"
	rpcPath      = "/_/TranslateWebserverUi/data/batchexecute"
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	providerName = "gtts"
)

var audioRe = regexp.MustCompile(`jQ1olc","\[\\"(.*?)\\"]`)

type Config struct {
	Language string
	Slow     bool
	BaseURL  string
	// Timeout bounds each segment request; zero leaves the client default.
	Timeout time.Duration
}

type GoogleTTS struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func New(cfg Config) *GoogleTTS {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	client := http.DefaultClient
	if cfg.Timeout > 0 {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &GoogleTTS{
		cfg:    cfg,
		client: client,
		logger: logging.NewComponentLogger(slog.Default(), "gtts"),
	}
}

func (g *GoogleTTS) Name() string { return providerName }

func (g *GoogleTTS) Ready() error { return nil }

// Synthesize requests one MP3 segment per token and concatenates them.
// MP3 frames are self-delimiting so the joined stream plays as one file.
func (g *GoogleTTS) Synthesize(ctx context.Context, req tts.Request) ([]byte, error) {
	tokens := Tokenize(req.Text)
	if len(tokens) == 0 {
		return nil, errorsx.New(errorsx.ReasonTTSSynthesize, "no text to speak")
	}
	var out bytes.Buffer
	for i, tok := range tokens {
		seg, err := g.segment(ctx, tok)
		if err != nil {
			return nil, fmt.Errorf("gtts token %d/%d: %w", i+1, len(tokens), err)
		}
		out.Write(seg)
	}
	g.logger.Debug("gtts audio received",
		slog.Int("tokens", len(tokens)),
		slog.Int("size_bytes", out.Len()))
	return out.Bytes(), nil
}

func (g *GoogleTTS) segment(ctx context.Context, text string) ([]byte, error) {
	body, err := packageRPC(text, g.cfg.Language, g.cfg.Slow)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonTTSSynthesize)
	}
	base := strings.TrimRight(g.cfg.BaseURL, "/")
	endpoint := base + rpcPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonTTSSynthesize)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")
	req.Header.Set("Referer", base+"/")
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, errorsx.Wrap(fmt.Errorf("gtts request: %w", err), errorsx.ReasonTTSSynthesize)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errorsx.Wrap(resilience.RateLimitError{Provider: providerName, Message: resp.Status}, errorsx.ReasonTTSRateLimit)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errorsx.Wrap(fmt.Errorf("gtts status %d: %s", resp.StatusCode, strings.TrimSpace(string(b))), errorsx.ReasonTTSSynthesize)
	}
	return decodeAudio(resp.Body)
}

// packageRPC builds the form body: f.req=[[["jQ1olc","[text,lang,speed,\"null\"]",null,"generic"]]]
func packageRPC(text, lang string, slow bool) (string, error) {
	var speed any
	if slow {
		speed = true
	}
	param, err := json.Marshal([]any{text, lang, speed, "null"})
	if err != nil {
		return "", err
	}
	rpc, err := json.Marshal([][][]any{{{rpcID, string(param), nil, "generic"}}})
	if err != nil {
		return "", err
	}
	return "f.req=" + url.QueryEscape(string(rpc)) + "&", nil
}

func decodeAudio(r io.Reader) ([]byte, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var out []byte
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, rpcID) {
			continue
		}
		m := audioRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(m[1])
		if err != nil {
			return nil, errorsx.Wrap(fmt.Errorf("decode gtts audio: %w", err), errorsx.ReasonTTSSynthesize)
		}
		out = append(out, raw...)
	}
	if err := sc.Err(); err != nil {
		return nil, errorsx.Wrap(fmt.Errorf("read gtts response: %w", err), errorsx.ReasonTTSSynthesize)
	}
	if len(out) == 0 {
		return nil, errorsx.New(errorsx.ReasonTTSSynthesize, "gtts response carried no audio")
	}
	return out, nil
}

var _ tts.Synthesizer = (*GoogleTTS)(nil)
