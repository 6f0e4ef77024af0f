package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/harunnryd/vocalis/pkg/audio"
	"github.com/harunnryd/vocalis/pkg/errorsx"
	"github.com/harunnryd/vocalis/pkg/logging"
	"github.com/harunnryd/vocalis/pkg/metrics"
)

const (
	DefaultListenTimeout       = 20 * time.Second
	DefaultCalibrationDuration = time.Second
)

type RecorderOptions struct {
	// Microphone defaults to ffmpeg on the host's capture backend.
	Microphone audio.Microphone
	// Transcoder defaults to ffmpeg with libmp3lame.
	Transcoder audio.Transcoder
	Recognizer audio.RecognizerConfig
	// CalibrationDuration is spent sampling ambient noise before listening.
	// Negative skips calibration.
	CalibrationDuration time.Duration
	// IntermediateDir holds the lossless recording; defaults to os.TempDir().
	IntermediateDir string
	Observer        metrics.Observer
	Logger          *slog.Logger
	Listeners       []StateListener
}

// CaptureOptions bound a single capture. A zero Timeout means
// DefaultListenTimeout and a negative one waits forever. A zero PhraseLimit
// lets the phrase run until the speaker pauses.
type CaptureOptions struct {
	Timeout     time.Duration
	PhraseLimit time.Duration
	Bitrate     string
}

// Recorder captures one spoken phrase into a compressed artifact.
type Recorder struct {
	mic         audio.Microphone
	transcoder  audio.Transcoder
	recognizer  audio.RecognizerConfig
	calibration time.Duration
	dir         string
	observer    metrics.Observer
	logger      *slog.Logger
	listeners   []StateListener
}

func NewRecorder(opts RecorderOptions) *Recorder {
	if opts.Microphone == nil {
		opts.Microphone = &audio.FFmpegMicrophone{}
	}
	if opts.Transcoder == nil {
		opts.Transcoder = audio.FFmpegTranscoder{}
	}
	if opts.CalibrationDuration == 0 {
		opts.CalibrationDuration = DefaultCalibrationDuration
	}
	if opts.IntermediateDir == "" {
		opts.IntermediateDir = os.TempDir()
	}
	if opts.Observer == nil {
		opts.Observer = metrics.NoopObserver{}
	}
	return &Recorder{
		mic:         opts.Microphone,
		transcoder:  opts.Transcoder,
		recognizer:  opts.Recognizer,
		calibration: opts.CalibrationDuration,
		dir:         opts.IntermediateDir,
		observer:    opts.Observer,
		logger:      logging.NewComponentLogger(opts.Logger, "capture"),
		listeners:   opts.Listeners,
	}
}

// Capture listens for one phrase and stores it at path as MP3. A file at
// path is only replaced or removed once transcoding has started, so a failed
// capture never touches output it did not produce. The lossless intermediate
// is removed exactly when transcoding succeeded.
func (r *Recorder) Capture(ctx context.Context, path string, opts CaptureOptions) CaptureOutcome {
	runID := uuid.NewString()
	logger := r.logger.With(slog.String("run_id", runID))
	sm := newStateMachine(r.listeners...)
	start := time.Now()

	out := r.capture(ctx, logger, sm, runID, path, opts)
	out.RunID = runID
	out.Trace = sm.Trace()

	fields := map[string]any{metrics.FieldAudioSec: out.Duration.Seconds()}
	if out.Artifact != nil {
		fields[metrics.FieldBytes] = out.Artifact.Size
	}
	metrics.RecordFields(r.observer, metrics.EventCaptureComplete, metrics.Elapsed(start), map[string]string{
		metrics.TagRunID:  runID,
		metrics.TagStatus: string(out.Status),
		metrics.TagReason: string(out.Reason),
	}, fields)
	return out
}

func (r *Recorder) capture(ctx context.Context, logger *slog.Logger, sm *stateMachine, runID, path string, opts CaptureOptions) CaptureOutcome {
	var spoken time.Duration
	// path belongs to the caller until the transcoder has written to it.
	wrote := false
	fail := func(status CaptureStatus, reason errorsx.ReasonCode, err error) CaptureOutcome {
		if wrote {
			removeArtifact(logger, path)
		}
		advance(sm, logger, StateFailed, string(reason))
		return CaptureOutcome{Status: status, Reason: reason, Err: errorsx.Wrap(err, reason), Duration: spoken}
	}

	advance(sm, logger, StateProducing, "capture")

	pcm, format, err := r.record(ctx, logger, opts)
	if errors.Is(err, audio.ErrWaitTimeout) {
		logger.Warn("no speech detected before timeout", slog.String("error", err.Error()))
		return fail(CaptureTimedOut, errorsx.ReasonCaptureTimeout, err)
	}
	if errors.Is(err, audio.ErrStreamEnded) {
		logger.Error("microphone delivered no audio", slog.String("error", err.Error()))
		return fail(CaptureDeviceError, errorsx.ReasonCaptureDevice, err)
	}
	if err != nil {
		logger.Error("microphone capture failed", slog.String("error", err.Error()))
		return fail(CaptureDeviceError, errorsx.ReasonCaptureDevice, err)
	}
	spoken = pcmDuration(pcm, format)

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		logger.Error("create intermediate dir failed", slog.String("error", err.Error()))
		return fail(CaptureEncodeError, errorsx.ReasonCaptureEncode, err)
	}
	wavPath := filepath.Join(r.dir, "capture-"+runID+".wav")
	if err := audio.WriteWAV(wavPath, pcm, format); err != nil {
		removeArtifact(logger, wavPath)
		logger.Error("write intermediate failed", slog.String("error", err.Error()))
		return fail(CaptureEncodeError, errorsx.ReasonCaptureEncode, err)
	}
	logger.Debug("intermediate written", slog.String("path", wavPath), slog.Int("pcm_bytes", len(pcm)))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Error("create output dir failed", slog.String("error", err.Error()))
		out := fail(CaptureEncodeError, errorsx.ReasonCaptureEncode, err)
		out.IntermediatePath = wavPath
		return out
	}
	wrote = true
	if err := r.transcoder.Convert(ctx, wavPath, path, opts.Bitrate); err != nil {
		logger.Error("transcode failed, keeping intermediate",
			slog.String("error", err.Error()),
			slog.String("intermediate_path", wavPath))
		out := fail(CaptureEncodeError, errorsx.ReasonCaptureEncode, fmt.Errorf("transcode: %w", err))
		out.IntermediatePath = wavPath
		return out
	}
	removeArtifact(logger, wavPath)

	advance(sm, logger, StateValidating, "compressed artifact")
	size, err := audio.ValidateArtifact(path)
	if err != nil {
		logger.Error("compressed artifact invalid", slog.String("error", err.Error()))
		return fail(CaptureEncodeError, errorsx.ReasonCaptureEncode, err)
	}
	advance(sm, logger, StateDone, "captured")

	logger.Info("audio captured",
		slog.String("path", path),
		slog.Int64("size_bytes", size),
		slog.Duration("speech", spoken))
	return CaptureOutcome{
		Status:   Captured,
		Duration: spoken,
		Artifact: &audio.Artifact{
			Path:       path,
			Encoding:   audio.EncodingMP3,
			Provenance: "microphone",
			Size:       size,
		},
	}
}

func pcmDuration(pcm []byte, f audio.Format) time.Duration {
	bps := f.SampleRate * f.BytesPerFrame()
	if bps <= 0 {
		return 0
	}
	return time.Duration(len(pcm)) * time.Second / time.Duration(bps)
}

// record holds the microphone only for the duration of listening.
func (r *Recorder) record(ctx context.Context, logger *slog.Logger, opts CaptureOptions) ([]byte, audio.Format, error) {
	release, err := audio.AcquireDevice()
	if err != nil {
		return nil, audio.Format{}, err
	}
	defer release()

	stream, err := r.mic.Open(ctx)
	if err != nil {
		return nil, audio.Format{}, fmt.Errorf("open microphone: %w", err)
	}
	defer stream.Close()

	rec := audio.NewRecognizer(r.recognizer)
	if r.calibration > 0 {
		logger.Info("adjusting for ambient noise", slog.Duration("duration", r.calibration))
		if err := rec.Calibrate(stream, r.calibration); err != nil {
			return nil, audio.Format{}, err
		}
	}

	timeout := opts.Timeout
	switch {
	case timeout == 0:
		timeout = DefaultListenTimeout
	case timeout < 0:
		timeout = 0
	}
	logger.Info("listening",
		slog.Duration("timeout", timeout),
		slog.Float64("energy_threshold", rec.Threshold()))

	pcm, err := rec.Listen(ctx, stream, timeout, opts.PhraseLimit)
	if err != nil {
		return nil, audio.Format{}, err
	}
	return pcm, stream.Format(), nil
}
