// Package vocalis wires configuration, providers and the voice pipelines
// into one engine built once at startup.
package vocalis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/harunnryd/vocalis/pkg/adapters/tts"
	"github.com/harunnryd/vocalis/pkg/audio"
	"github.com/harunnryd/vocalis/pkg/configutil"
	"github.com/harunnryd/vocalis/pkg/errorsx"
	"github.com/harunnryd/vocalis/pkg/metrics"
	"github.com/harunnryd/vocalis/pkg/observers"
	"github.com/harunnryd/vocalis/pkg/redact"
	"github.com/harunnryd/vocalis/pkg/voice"
)

// ErrMissingCredential is returned by New when the transcription provider
// cannot be built for lack of a credential.
var ErrMissingCredential = errors.New("missing mandatory credential")

// intermediatePattern matches the lossless files the recorder leaves behind
// after a failed transcode.
const intermediatePattern = "capture-*.wav"

type EngineOptions struct {
	Config    Config
	Providers *ProviderRegistry
	// Microphone, Transcoder and Player replace the ffmpeg and OS defaults.
	Microphone audio.Microphone
	Transcoder audio.Transcoder
	Player     voice.Player
	// Observer receives pipeline events in addition to the configured sinks.
	Observer  metrics.Observer
	Logger    *slog.Logger
	Listeners []voice.StateListener
}

// Engine owns both pipelines. It is safe to reuse across calls; only one
// capture can hold the microphone at a time.
type Engine struct {
	cfg         Config
	synthesizer *voice.Synthesizer
	recorder    *voice.Recorder
	transcriber *voice.TranscriptionService
	usage       *observers.UsageObserver
	sinks       *observers.MultiObserver
	logger      *slog.Logger
}

// New builds an engine with the built-in providers.
func New(cfg Config) (*Engine, error) {
	return NewEngine(EngineOptions{Config: cfg})
}

func NewEngine(opts EngineOptions) (*Engine, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	redact.SetEnabled(cfg.Privacy.RedactPII)

	providers := opts.Providers
	if providers == nil {
		providers = DefaultProviders()
	}

	e := &Engine{cfg: cfg, logger: logger}

	transcriber, err := providers.BuildTranscriber(cfg, cfg.Transcription)
	if err != nil {
		if errorsx.HasReason(err, errorsx.ReasonConfigMissingCredential) {
			return nil, fmt.Errorf("%w: %s: %w", ErrMissingCredential, cfg.Transcription.Provider, err)
		}
		return nil, fmt.Errorf("build transcription provider: %w", err)
	}

	strategies := make([]tts.Synthesizer, 0, len(cfg.Synthesis.Providers))
	for _, vendor := range cfg.Synthesis.Providers {
		s, err := providers.BuildSynthesizer(cfg, vendor)
		if err != nil {
			return nil, fmt.Errorf("build synthesis provider %s: %w", vendor.Provider, err)
		}
		if rerr := s.Ready(); rerr != nil {
			logger.Warn("synthesis provider not ready, it will be skipped",
				slog.String("provider", s.Name()),
				slog.String("reason", string(errorsx.Reason(rerr))))
		}
		strategies = append(strategies, s)
	}

	observer, err := e.buildObserver(opts.Observer)
	if err != nil {
		return nil, err
	}

	player := opts.Player
	if player == nil {
		if cfg.Playback.Disabled {
			player = skipPlayer{}
		} else {
			player = audio.NewPlayer(audio.PlayerOptions{
				LinuxCommand: cfg.Playback.LinuxCommand,
				Logger:       logger,
			})
		}
	}

	e.synthesizer = voice.NewSynthesizer(voice.SynthesizerOptions{
		Strategies: strategies,
		Player:     player,
		Breaker: voice.BreakerOptions{
			Threshold: cfg.Synthesis.Breaker.Threshold,
			Cooldown:  configutil.MillisValue(cfg.Synthesis.Breaker.CooldownMS, 0),
		},
		Observer:  observer,
		Logger:    logger,
		Listeners: opts.Listeners,
	})

	mic := opts.Microphone
	if mic == nil {
		mic = &audio.FFmpegMicrophone{
			FFmpegPath: cfg.Capture.FFmpegPath,
			Device:     cfg.Capture.Device,
			Format:     audio.Format{SampleRate: cfg.Capture.SampleRate, Channels: 1},
		}
	}
	transcoder := opts.Transcoder
	if transcoder == nil {
		transcoder = audio.FFmpegTranscoder{Path: cfg.Capture.FFmpegPath}
	}
	calibration := configutil.MillisValue(cfg.Capture.CalibrationMS, -1)
	if calibration == 0 {
		calibration = -1
	}
	e.recorder = voice.NewRecorder(voice.RecorderOptions{
		Microphone: mic,
		Transcoder: transcoder,
		Recognizer: audio.RecognizerConfig{
			EnergyThreshold:     cfg.Capture.EnergyThreshold,
			DynamicEnergy:       cfg.Capture.DynamicEnergy,
			PauseThreshold:      configutil.MillisValue(cfg.Capture.PauseThresholdMS, 0),
			PhraseThreshold:     configutil.MillisValue(cfg.Capture.PhraseThresholdMS, 0),
			NonSpeakingDuration: configutil.MillisValue(cfg.Capture.NonSpeakingMS, 0),
		},
		CalibrationDuration: calibration,
		IntermediateDir:     cfg.Capture.IntermediateDir,
		Observer:            observer,
		Logger:              logger,
		Listeners:           opts.Listeners,
	})

	e.transcriber = voice.NewTranscriptionService(voice.TranscriptionOptions{
		Transcriber: transcriber,
		Observer:    observer,
		Logger:      logger,
		Listeners:   opts.Listeners,
	})

	e.purgeIntermediates()

	logger.Info("vocalis_init",
		slog.String("environment", cfg.Environment),
		slog.String("synthesis_chain", strings.Join(e.synthesizer.Providers(), ",")),
		slog.String("transcription_provider", e.transcriber.Provider()),
		slog.String("elevenlabs_key", redact.Secret(cfg.Credentials.ElevenLabsAPIKey)),
		slog.String("groq_key", redact.Secret(cfg.Credentials.GroqAPIKey)),
		slog.Bool("redact_pii", cfg.Privacy.RedactPII))
	return e, nil
}

func (e *Engine) buildObserver(extra metrics.Observer) (metrics.Observer, error) {
	list := []metrics.Observer{observers.NewLoggerObserver(e.logger)}
	if extra != nil {
		list = append(list, extra)
	}

	var files []metrics.Observer
	if path := strings.TrimSpace(e.cfg.Observability.MetricsPath); path != "" {
		jsonl, err := metrics.OpenJSONLFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, jsonl)
	}
	dir := strings.TrimSpace(e.cfg.Observability.ArtifactsDir)
	if dir != "" {
		files = append(files, observers.NewTimelineObserver(dir))
	}
	if len(files) > 0 {
		var sink metrics.Observer = observers.NewMultiObserver(files...)
		if n := e.cfg.Observability.AsyncBuffer; n > 0 {
			sink = metrics.NewAsyncObserver(sink, n)
		}
		list = append(list, sink)
	}

	// Usage stays synchronous so Usage() reflects the call that just returned.
	e.usage = observers.NewUsageObserver(dir)
	list = append(list, e.usage)
	e.sinks = observers.NewMultiObserver(list...)
	return e.sinks, nil
}

func (e *Engine) purgeIntermediates() {
	dir := e.cfg.Capture.IntermediateDir
	if dir == "" {
		dir = os.TempDir()
	}
	removed, err := observers.Retention{
		Dir:     dir,
		Pattern: intermediatePattern,
		MaxAge:  time.Duration(e.cfg.Capture.IntermediateMaxDays) * 24 * time.Hour,
	}.Purge()
	if err != nil {
		e.logger.Warn("purge intermediates failed", slog.String("dir", dir), slog.String("error", err.Error()))
	}
	for _, path := range removed {
		e.logger.Info("purged stale intermediate", slog.String("path", path))
	}
}

// Speak synthesizes text to outputPath and plays it.
func (e *Engine) Speak(ctx context.Context, text, outputPath string) voice.SynthesisOutcome {
	return e.synthesizer.Synthesize(ctx, text, outputPath)
}

// Record captures one phrase from the microphone into path.
func (e *Engine) Record(ctx context.Context, path string) voice.CaptureOutcome {
	return e.recorder.Capture(ctx, path, e.CaptureOptions())
}

// Transcribe returns the text spoken in the artifact at path.
func (e *Engine) Transcribe(ctx context.Context, path string) voice.TranscriptionOutcome {
	return e.transcriber.Transcribe(ctx, path)
}

// Listen records one phrase into path and transcribes it. Transcription
// still runs after a failed capture; it reports the missing artifact
// without calling the provider.
func (e *Engine) Listen(ctx context.Context, path string) (voice.CaptureOutcome, voice.TranscriptionOutcome) {
	captured := e.Record(ctx, path)
	return captured, e.Transcribe(ctx, path)
}

// CaptureOptions derives per-capture bounds from the configuration.
func (e *Engine) CaptureOptions() voice.CaptureOptions {
	return voice.CaptureOptions{
		Timeout:     e.cfg.Capture.ListenTimeout(),
		PhraseLimit: configutil.MillisValue(e.cfg.Capture.PhraseLimitMS, 0),
		Bitrate:     e.cfg.Capture.Bitrate,
	}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Usage returns the provider totals recorded so far.
func (e *Engine) Usage() observers.UsageSummary {
	return e.usage.Summary()
}

// Close flushes the metric sinks and writes usage.json when an artifacts
// directory is configured.
func (e *Engine) Close() error {
	if e.sinks == nil {
		return nil
	}
	sinks := e.sinks
	e.sinks = nil
	return sinks.Close()
}

type skipPlayer struct{}

func (skipPlayer) Play(context.Context, string) audio.PlaybackOutcome {
	return audio.PlaybackOutcome{Status: audio.PlaybackSkipped, Reason: errorsx.ReasonPlaybackDisabled}
}
