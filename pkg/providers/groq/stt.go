package groq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/harunnryd/vocalis/pkg/adapters/stt"
	"github.com/harunnryd/vocalis/pkg/errorsx"
	"github.com/harunnryd/vocalis/pkg/logging"
	"github.com/harunnryd/vocalis/pkg/resilience"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL  = "https://api.groq.com/openai/v1"
	DefaultModel    = "whisper-large-v3"
	DefaultLanguage = "en"

	providerName = "groq"
)

// ErrMissingAPIKey is returned by New when no credential was configured.
var ErrMissingAPIKey = errors.New("GROQ_API_KEY is not set")

type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
}

// Transcriber talks to Groq's OpenAI-compatible transcription endpoint.
type Transcriber struct {
	cfg    Config
	client *openai.Client
	logger *slog.Logger
}

func New(cfg Config) (*Transcriber, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errorsx.Wrap(ErrMissingAPIKey, errorsx.ReasonConfigMissingCredential)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Transcriber{
		cfg:    cfg,
		client: openai.NewClientWithConfig(oc),
		logger: logging.NewComponentLogger(slog.Default(), "groq_stt"),
	}, nil
}

func (t *Transcriber) Name() string { return providerName }

func (t *Transcriber) Transcribe(ctx context.Context, req stt.Request) (string, error) {
	model := req.Model
	if model == "" {
		model = t.cfg.Model
	}
	lang := req.Language
	if lang == "" {
		lang = t.cfg.Language
	}

	t.logger.Debug("sending audio to groq",
		slog.String("model", model),
		slog.String("language", lang),
		slog.String("path", req.Path))

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: req.Path,
		Language: lang,
	})
	if err != nil {
		return "", classify(err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		err = resilience.AuthError{Provider: providerName, StatusCode: status, Message: err.Error()}
	case http.StatusTooManyRequests:
		err = resilience.RateLimitError{Provider: providerName, Message: err.Error()}
	default:
		err = fmt.Errorf("groq transcription: %w", err)
	}
	return errorsx.Wrap(err, errorsx.ReasonSTTTranscribe)
}

var _ stt.Transcriber = (*Transcriber)(nil)
