package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harunnryd/vocalis/pkg/adapters/stt"
	"github.com/harunnryd/vocalis/pkg/errorsx"
	"github.com/harunnryd/vocalis/pkg/logging"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

const (
	DefaultModel    = "nova-2"
	DefaultLanguage = "en"
)

// ErrMissingAPIKey is returned by New when no credential was configured.
var ErrMissingAPIKey = errors.New("DEEPGRAM_API_KEY is not set")

type Config struct {
	APIKey      string
	Host        string
	Model       string
	Language    string
	SmartFormat bool
}

// PrerecordedSTT transcribes a finished audio file with Deepgram's REST API.
type PrerecordedSTT struct {
	cfg    Config
	dg     *api.Client
	logger *slog.Logger
}

func New(cfg Config) (*PrerecordedSTT, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errorsx.Wrap(ErrMissingAPIKey, errorsx.ReasonConfigMissingCredential)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}

	logger := logging.NewComponentLogger(slog.Default(), "deepgram_stt")
	c := client.NewREST(cfg.APIKey, &interfaces.ClientOptions{Host: cfg.Host})

	logger.Debug("deepgram client created",
		slog.String("model", cfg.Model),
		slog.String("language", cfg.Language))

	return &PrerecordedSTT{cfg: cfg, dg: api.New(c), logger: logger}, nil
}

func (s *PrerecordedSTT) Name() string { return "deepgram" }

func (s *PrerecordedSTT) Transcribe(ctx context.Context, req stt.Request) (string, error) {
	model := req.Model
	if model == "" {
		model = s.cfg.Model
	}
	lang := req.Language
	if lang == "" {
		lang = s.cfg.Language
	}

	opts := &interfaces.PreRecordedTranscriptionOptions{
		Model:       model,
		Language:    lang,
		SmartFormat: s.cfg.SmartFormat,
	}
	res, err := s.dg.FromFile(ctx, req.Path, opts)
	if err != nil {
		s.logger.Error("deepgram_prerecorded_error",
			slog.String("error", err.Error()),
			slog.String("path", req.Path))
		return "", errorsx.Wrap(fmt.Errorf("deepgram transcription: %w", err), errorsx.ReasonSTTTranscribe)
	}

	// The SDK response is re-read through JSON so only the transcript path
	// is depended on.
	raw, err := json.Marshal(res)
	if err != nil {
		return "", errorsx.Wrap(fmt.Errorf("encode deepgram response: %w", err), errorsx.ReasonSTTTranscribe)
	}
	return transcriptFromJSON(raw)
}

type prerecordedBody struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func transcriptFromJSON(raw []byte) (string, error) {
	var body prerecordedBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", errorsx.Wrap(fmt.Errorf("decode deepgram response: %w", err), errorsx.ReasonSTTTranscribe)
	}
	if len(body.Results.Channels) == 0 || len(body.Results.Channels[0].Alternatives) == 0 {
		return "", errorsx.New(errorsx.ReasonSTTTranscribe, "deepgram returned no alternatives")
	}
	return strings.TrimSpace(body.Results.Channels[0].Alternatives[0].Transcript), nil
}

var _ stt.Transcriber = (*PrerecordedSTT)(nil)
