package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harunnryd/vocalis/pkg/adapters/tts"
	"github.com/harunnryd/vocalis/pkg/errorsx"
	"github.com/harunnryd/vocalis/pkg/logging"
	"github.com/harunnryd/vocalis/pkg/resilience"
)

const (
	DefaultBaseURL      = "wss://api.elevenlabs.io"
	DefaultVoiceID      = "9BWtsMINqrJLrRacOk9x" // "Aria"
	DefaultModelID      = "eleven_turbo_v2"
	DefaultOutputFormat = "mp3_22050_32"

	providerName = "elevenlabs"
)

// ErrMissingAPIKey is returned by Ready when no credential was configured.
var ErrMissingAPIKey = errors.New("ELEVENLABS_API_KEY is missing")

type Config struct {
	APIKey          string
	VoiceID         string
	ModelID         string
	OutputFormat    string
	BaseURL         string
	Stability       float64
	SimilarityBoost float64
	// Timeout bounds the websocket handshake; zero leaves the dialer default.
	Timeout time.Duration
}

// ElevenLabsTTS renders a whole utterance over the stream-input websocket and
// collects every audio chunk until the server marks the stream final.
type ElevenLabsTTS struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *slog.Logger
}

type inboundMessage struct {
	Audio       string `json:"audio"`
	AudioBase64 string `json:"audio_base_64"`
	IsFinal     *bool  `json:"isFinal"`
	Error       string `json:"error"`
	Message     string `json:"message"`
}

func New(cfg Config) *ElevenLabsTTS {
	if cfg.VoiceID == "" {
		cfg.VoiceID = DefaultVoiceID
	}
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultModelID
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = DefaultOutputFormat
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Stability == 0 {
		cfg.Stability = 0.5
	}
	if cfg.SimilarityBoost == 0 {
		cfg.SimilarityBoost = 0.8
	}
	return &ElevenLabsTTS{
		cfg:    cfg,
		dialer: &websocket.Dialer{Proxy: http.ProxyFromEnvironment, HandshakeTimeout: cfg.Timeout},
		logger: logging.NewComponentLogger(slog.Default(), "elevenlabs_tts"),
	}
}

func (s *ElevenLabsTTS) Name() string { return providerName }

func (s *ElevenLabsTTS) Ready() error {
	if strings.TrimSpace(s.cfg.APIKey) == "" {
		return errorsx.Wrap(ErrMissingAPIKey, errorsx.ReasonConfigMissingCredential)
	}
	if strings.TrimSpace(s.cfg.VoiceID) == "" {
		return errorsx.New(errorsx.ReasonConfigInvalid, "elevenlabs voice_id is required")
	}
	return nil
}

func (s *ElevenLabsTTS) Synthesize(ctx context.Context, req tts.Request) ([]byte, error) {
	if err := s.Ready(); err != nil {
		return nil, err
	}
	u, err := s.buildURL()
	if err != nil {
		return nil, err
	}

	s.logger.Debug("connecting to ElevenLabs",
		slog.String("voice_id", s.cfg.VoiceID),
		slog.String("output_format", s.cfg.OutputFormat))

	conn, resp, err := s.dialer.DialContext(ctx, u, http.Header{
		"xi-api-key": []string{s.cfg.APIKey},
	})
	if err != nil {
		return nil, classifyDialError(resp, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	text := strings.TrimSpace(req.Text)
	if !strings.HasSuffix(text, " ") {
		text += " "
	}
	messages := []map[string]any{
		{
			"text": " ",
			"voice_settings": map[string]any{
				"stability":        s.cfg.Stability,
				"similarity_boost": s.cfg.SimilarityBoost,
			},
		},
		{"text": text, "try_trigger_generation": true},
		// Empty text closes the input stream.
		{"text": ""},
	}
	for _, m := range messages {
		if err := send(conn, m); err != nil {
			return nil, errorsx.Wrap(fmt.Errorf("send to elevenlabs: %w", err), errorsx.ReasonTTSSynthesize)
		}
	}

	audio, err := s.collect(ctx, conn)
	if err != nil {
		return nil, err
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	s.logger.Info("elevenlabs audio received",
		slog.String("voice_id", s.cfg.VoiceID),
		slog.Int("size_bytes", len(audio)))
	return audio, nil
}

func (s *ElevenLabsTTS) collect(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	var buf bytes.Buffer
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return buf.Bytes(), nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, classifyCloseError(err)
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("tts websocket raw data", "data", string(data))
			continue
		}
		if msg.Error != "" {
			return nil, classifyServerError(msg)
		}

		chunk := msg.Audio
		if chunk == "" {
			chunk = msg.AudioBase64
		}
		if chunk != "" {
			raw, err := base64.StdEncoding.DecodeString(chunk)
			if err != nil {
				return nil, errorsx.Wrap(fmt.Errorf("decode elevenlabs audio: %w", err), errorsx.ReasonTTSSynthesize)
			}
			buf.Write(raw)
			s.logger.Debug("tts audio chunk received", slog.Int("size_bytes", len(raw)))
		}
		if msg.IsFinal != nil && *msg.IsFinal {
			return buf.Bytes(), nil
		}
	}
}

func (s *ElevenLabsTTS) buildURL() (string, error) {
	base, err := url.Parse(strings.TrimRight(s.cfg.BaseURL, "/"))
	if err != nil {
		return "", errorsx.Wrap(fmt.Errorf("parse elevenlabs base url: %w", err), errorsx.ReasonConfigInvalid)
	}
	base.Path += "/v1/text-to-speech/" + url.PathEscape(s.cfg.VoiceID) + "/stream-input"
	q := url.Values{}
	if s.cfg.ModelID != "" {
		q.Set("model_id", s.cfg.ModelID)
	}
	if s.cfg.OutputFormat != "" {
		q.Set("output_format", s.cfg.OutputFormat)
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}

func send(conn *websocket.Conn, payload map[string]any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}

func classifyDialError(resp *http.Response, err error) error {
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return errorsx.Wrap(resilience.AuthError{
				Provider:   providerName,
				StatusCode: resp.StatusCode,
				Message:    resp.Status,
			}, errorsx.ReasonTTSAuth)
		case http.StatusTooManyRequests, http.StatusPaymentRequired:
			return errorsx.Wrap(resilience.RateLimitError{
				Provider: providerName,
				Message:  resp.Status,
			}, errorsx.ReasonTTSRateLimit)
		}
	}
	return errorsx.Wrap(fmt.Errorf("dial elevenlabs: %w", err), errorsx.ReasonTTSSynthesize)
}

// ElevenLabs closes the socket with 1008 when it rejects the key or the
// client network after the handshake.
func classifyCloseError(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) && ce.Code == websocket.ClosePolicyViolation {
		return errorsx.Wrap(resilience.AuthError{Provider: providerName, Message: ce.Text}, errorsx.ReasonTTSAuth)
	}
	return errorsx.Wrap(fmt.Errorf("read from elevenlabs: %w", err), errorsx.ReasonTTSSynthesize)
}

func classifyServerError(msg inboundMessage) error {
	text := msg.Message
	if text == "" {
		text = msg.Error
	}
	switch msg.Error {
	case "invalid_api_key", "unauthorized", "detected_unusual_activity":
		return errorsx.Wrap(resilience.AuthError{Provider: providerName, Message: text}, errorsx.ReasonTTSAuth)
	case "quota_exceeded", "rate_limit_exceeded", "too_many_concurrent_requests":
		return errorsx.Wrap(resilience.RateLimitError{Provider: providerName, Message: text}, errorsx.ReasonTTSRateLimit)
	}
	return errorsx.Wrap(fmt.Errorf("elevenlabs error: %s", text), errorsx.ReasonTTSSynthesize)
}

var _ tts.Synthesizer = (*ElevenLabsTTS)(nil)
