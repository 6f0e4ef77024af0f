// Package voice orchestrates the two single-shot pipelines of a voice loop:
// text to played audio through an ordered chain of synthesis providers, and
// microphone to transcript through capture, transcoding and transcription.
package voice

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/harunnryd/vocalis/pkg/adapters/tts"
	"github.com/harunnryd/vocalis/pkg/audio"
	"github.com/harunnryd/vocalis/pkg/errorsx"
	"github.com/harunnryd/vocalis/pkg/logging"
	"github.com/harunnryd/vocalis/pkg/metrics"
	"github.com/harunnryd/vocalis/pkg/redact"
	"github.com/harunnryd/vocalis/pkg/resilience"
)

// Player plays a finished artifact.
type Player interface {
	Play(ctx context.Context, path string) audio.PlaybackOutcome
}

// BreakerOptions enables a per-provider circuit breaker when Threshold > 0.
type BreakerOptions struct {
	Threshold int
	Cooldown  time.Duration
}

type SynthesizerOptions struct {
	// Strategies are tried in order until one yields a valid artifact.
	Strategies []tts.Synthesizer
	// Player defaults to the host's native player.
	Player    Player
	Breaker   BreakerOptions
	Observer  metrics.Observer
	Logger    *slog.Logger
	Listeners []StateListener
}

// Synthesizer turns text into a played audio file, falling back through its
// strategies. Calls are independent apart from the optional breakers.
type Synthesizer struct {
	strategies []tts.Synthesizer
	breakers   map[string]*resilience.CircuitBreaker
	player     Player
	observer   metrics.Observer
	logger     *slog.Logger
	listeners  []StateListener
}

func NewSynthesizer(opts SynthesizerOptions) *Synthesizer {
	logger := logging.NewComponentLogger(opts.Logger, "synthesis")
	if opts.Player == nil {
		opts.Player = audio.NewPlayer(audio.PlayerOptions{Logger: opts.Logger})
	}
	if opts.Observer == nil {
		opts.Observer = metrics.NoopObserver{}
	}
	s := &Synthesizer{
		strategies: append([]tts.Synthesizer(nil), opts.Strategies...),
		player:     opts.Player,
		observer:   opts.Observer,
		logger:     logger,
		listeners:  opts.Listeners,
	}
	if opts.Breaker.Threshold > 0 {
		s.breakers = make(map[string]*resilience.CircuitBreaker, len(s.strategies))
		for _, st := range s.strategies {
			s.breakers[st.Name()] = resilience.NewCircuitBreaker(opts.Breaker.Threshold, opts.Breaker.Cooldown)
		}
	}
	return s
}

// Providers returns the strategy names in fallback order.
func (s *Synthesizer) Providers() []string {
	names := make([]string, 0, len(s.strategies))
	for _, st := range s.strategies {
		names = append(names, st.Name())
	}
	return names
}

// Synthesize renders text to outputPath with the first strategy that
// produces a valid artifact and plays it. It never returns an error; the
// outcome says which provider served the text and what happened to the
// others.
func (s *Synthesizer) Synthesize(ctx context.Context, text, outputPath string) SynthesisOutcome {
	runID := uuid.NewString()
	logger := s.logger.With(slog.String("run_id", runID))
	sm := newStateMachine(s.listeners...)
	out := SynthesisOutcome{RunID: runID}
	start := time.Now()

	logger.Info("synthesis started",
		slog.String("text_preview", redact.Preview(text, 80)),
		slog.String("output_path", outputPath))

	for i, strategy := range s.strategies {
		name := strategy.Name()
		next := StateProducing
		if i > 0 {
			next = StateFallbackProducing
		}
		advance(sm, logger, next, name)

		attempt := s.try(ctx, logger, sm, runID, strategy, text, outputPath)
		out.Attempts = append(out.Attempts, attempt)
		if attempt.Status != AttemptSucceeded {
			continue
		}

		size, _ := audio.ValidateArtifact(outputPath)
		out.Provider = name
		out.Artifact = &audio.Artifact{
			Path:       outputPath,
			Encoding:   audio.EncodingMP3,
			Provenance: name,
			Size:       size,
		}

		advance(sm, logger, StateConsuming, "playback")
		out.Playback = s.player.Play(ctx, outputPath)
		metrics.Record(s.observer, metrics.EventPlayback, 0, map[string]string{
			metrics.TagRunID:  runID,
			metrics.TagStatus: string(out.Playback.Status),
			metrics.TagReason: string(out.Playback.Reason),
		})
		if out.Playback.Played() {
			out.Status = SynthesisPlayed
			advance(sm, logger, StateDone, "played")
		} else {
			out.Status = SynthesisSaved
			advance(sm, logger, StateDone, "playback skipped")
		}
		out.Trace = sm.Trace()

		logger.Info("synthesis complete",
			slog.String("provider", name),
			slog.String("status", string(out.Status)),
			slog.Int64("size_bytes", size))
		metrics.RecordFields(s.observer, metrics.EventSynthesisComplete, metrics.Elapsed(start), map[string]string{
			metrics.TagRunID:    runID,
			metrics.TagProvider: name,
			metrics.TagStatus:   string(out.Status),
		}, map[string]any{metrics.FieldBytes: size})
		return out
	}

	advance(sm, logger, StateFailed, "all providers failed")
	out.Status = SynthesisFailed
	out.Trace = sm.Trace()
	logger.Error("all synthesis providers failed", slog.Int("attempts", len(out.Attempts)))
	metrics.Record(s.observer, metrics.EventSynthesisComplete, metrics.Elapsed(start), map[string]string{
		metrics.TagRunID:  runID,
		metrics.TagStatus: string(SynthesisFailed),
	})
	return out
}

// try runs one strategy through render, write and validation.
func (s *Synthesizer) try(ctx context.Context, logger *slog.Logger, sm *stateMachine, runID string, strategy tts.Synthesizer, text, outputPath string) Attempt {
	name := strategy.Name()
	logger = logger.With(slog.String("provider", name))
	attempt := Attempt{Provider: name}
	start := time.Now()
	defer func() {
		metrics.RecordFields(s.observer, metrics.EventSynthesisAttempt, metrics.Elapsed(start), map[string]string{
			metrics.TagRunID:    runID,
			metrics.TagProvider: name,
			metrics.TagStatus:   string(attempt.Status),
			metrics.TagReason:   string(attempt.Reason),
		}, map[string]any{metrics.FieldChars: utf8.RuneCountInString(text)})
	}()

	if err := strategy.Ready(); err != nil {
		logger.Warn("missing credential, skipping provider", slog.String("error", err.Error()))
		attempt.Status, attempt.Reason, attempt.Err = AttemptSkipped, errorsx.Reason(err), err
		return attempt
	}
	breaker := s.breakers[name]
	if breaker != nil && !breaker.Allow() {
		err := errorsx.New(errorsx.ReasonTTSCircuitOpen, name+" circuit open")
		logger.Warn("provider circuit open, skipping")
		attempt.Status, attempt.Reason, attempt.Err = AttemptSkipped, errorsx.ReasonTTSCircuitOpen, err
		return attempt
	}

	data, err := strategy.Synthesize(ctx, tts.Request{Text: text})
	if err != nil {
		if breaker != nil {
			breaker.OnError(err)
		}
		attempt.Status, attempt.Err = AttemptFailed, err
		switch {
		case resilience.IsAuth(err):
			attempt.Reason = errorsx.ReasonTTSAuth
			logger.Error("provider rejected credentials",
				slog.String("error", err.Error()),
				slog.String("hint", errorsx.Hint(errorsx.ReasonTTSAuth)))
		case resilience.IsRateLimit(err):
			attempt.Reason = errorsx.ReasonTTSRateLimit
			logger.Warn("provider rate limited",
				slog.String("error", err.Error()),
				slog.String("hint", errorsx.Hint(errorsx.ReasonTTSRateLimit)))
		default:
			attempt.Reason = reasonOr(err, errorsx.ReasonTTSSynthesize)
			logger.Error("synthesis failed",
				slog.String("error", err.Error()),
				slog.String("category", string(attempt.Reason.Category())))
		}
		return attempt
	}

	if err := audio.WriteArtifact(outputPath, data); err != nil {
		attempt.Status, attempt.Reason = AttemptFailed, errorsx.ReasonTTSArtifact
		attempt.Err = errorsx.Wrap(err, errorsx.ReasonTTSArtifact)
		logger.Error("write artifact failed", slog.String("error", err.Error()))
		return attempt
	}

	advance(sm, logger, StateValidating, name)
	if _, err := audio.ValidateArtifact(outputPath); err != nil {
		removeArtifact(logger, outputPath)
		attempt.Status, attempt.Reason = AttemptFailed, errorsx.ReasonTTSArtifact
		attempt.Err = errorsx.Wrap(err, errorsx.ReasonTTSArtifact)
		logger.Error("artifact validation failed", slog.String("error", err.Error()))
		return attempt
	}

	if breaker != nil {
		breaker.OnSuccess()
	}
	attempt.Status = AttemptSucceeded
	return attempt
}

func advance(sm *stateMachine, logger *slog.Logger, to State, reason string) {
	if err := sm.Transition(to, reason); err != nil {
		logger.Error("state transition rejected", slog.String("error", err.Error()))
		return
	}
	logger.Debug("state changed", slog.String("state", to.String()), slog.String("reason", reason))
}

func reasonOr(err error, fallback errorsx.ReasonCode) errorsx.ReasonCode {
	if r := errorsx.Reason(err); r != errorsx.ReasonUnknown {
		return r
	}
	return fallback
}

// removeArtifact deletes path if it exists.
func removeArtifact(logger *slog.Logger, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("remove artifact failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}
