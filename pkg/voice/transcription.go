package voice

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/harunnryd/vocalis/pkg/adapters/stt"
	"github.com/harunnryd/vocalis/pkg/audio"
	"github.com/harunnryd/vocalis/pkg/errorsx"
	"github.com/harunnryd/vocalis/pkg/logging"
	"github.com/harunnryd/vocalis/pkg/metrics"
	"github.com/harunnryd/vocalis/pkg/redact"
)

type TranscriptionOptions struct {
	Transcriber stt.Transcriber
	// Model and Language are passed to the provider; empty uses its default.
	Model     string
	Language  string
	Observer  metrics.Observer
	Logger    *slog.Logger
	Listeners []StateListener
}

// TranscriptionService validates a compressed artifact and hands it to the
// transcription provider.
type TranscriptionService struct {
	provider  stt.Transcriber
	model     string
	language  string
	observer  metrics.Observer
	logger    *slog.Logger
	listeners []StateListener
}

func NewTranscriptionService(opts TranscriptionOptions) *TranscriptionService {
	if opts.Observer == nil {
		opts.Observer = metrics.NoopObserver{}
	}
	return &TranscriptionService{
		provider:  opts.Transcriber,
		model:     opts.Model,
		language:  opts.Language,
		observer:  opts.Observer,
		logger:    logging.NewComponentLogger(opts.Logger, "transcription"),
		listeners: opts.Listeners,
	}
}

// Provider returns the transcription provider name.
func (s *TranscriptionService) Provider() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// Transcribe returns the text spoken in the artifact at path using the
// configured model.
func (s *TranscriptionService) Transcribe(ctx context.Context, path string) TranscriptionOutcome {
	return s.TranscribeWith(ctx, "", path)
}

// TranscribeWith is Transcribe with a model override. A missing or empty
// artifact is reported as TranscriptionInvalid without calling the provider.
func (s *TranscriptionService) TranscribeWith(ctx context.Context, model, path string) TranscriptionOutcome {
	runID := uuid.NewString()
	logger := s.logger.With(slog.String("run_id", runID), slog.String("path", path))
	sm := newStateMachine(s.listeners...)
	start := time.Now()
	if model == "" {
		model = s.model
	}

	out := TranscriptionOutcome{RunID: runID, Provider: s.Provider()}
	finish := func() TranscriptionOutcome {
		out.Trace = sm.Trace()
		metrics.Record(s.observer, metrics.EventTranscriptionComplete, metrics.Elapsed(start), map[string]string{
			metrics.TagRunID:    runID,
			metrics.TagProvider: out.Provider,
			metrics.TagStatus:   string(out.Status),
			metrics.TagReason:   string(out.Reason),
		})
		return out
	}

	advance(sm, logger, StateValidating, "artifact")
	if _, err := audio.ValidateArtifact(path); err != nil {
		logger.Error("audio file missing or empty", slog.String("error", err.Error()))
		advance(sm, logger, StateFailed, "invalid artifact")
		out.Status = TranscriptionInvalid
		out.Reason = errorsx.ReasonSTTValidation
		out.Err = errorsx.Wrap(err, errorsx.ReasonSTTValidation)
		return finish()
	}
	if s.provider == nil {
		advance(sm, logger, StateFailed, "no provider")
		out.Status = TranscriptionFailed
		out.Reason = errorsx.ReasonConfigMissingCredential
		out.Err = errorsx.New(errorsx.ReasonConfigMissingCredential, "no transcription provider configured")
		logger.Error("transcription failed", slog.String("error", out.Err.Error()))
		return finish()
	}

	advance(sm, logger, StateConsuming, s.provider.Name())
	text, err := s.provider.Transcribe(ctx, stt.Request{Path: path, Model: model, Language: s.language})
	if err != nil {
		advance(sm, logger, StateFailed, "provider error")
		out.Status = TranscriptionFailed
		out.Reason = reasonOr(err, errorsx.ReasonSTTTranscribe)
		out.Err = errorsx.Wrap(err, errorsx.ReasonSTTTranscribe)
		logger.Error("transcription failed", slog.String("error", err.Error()))
		return finish()
	}
	advance(sm, logger, StateDone, "recognized")

	out.Status = Recognized
	out.Text = text
	logger.Info("transcription complete",
		slog.String("model", model),
		slog.String("text_preview", redact.Preview(text, 80)))
	return finish()
}
