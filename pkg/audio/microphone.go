package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// ErrDeviceBusy is returned when another capture already holds the microphone.
var ErrDeviceBusy = errors.New("microphone is already in use")

var deviceMu sync.Mutex

// AcquireDevice takes the process-wide microphone lock. The returned release
// func is idempotent.
func AcquireDevice() (release func(), err error) {
	if !deviceMu.TryLock() {
		return nil, ErrDeviceBusy
	}
	var once sync.Once
	return func() { once.Do(deviceMu.Unlock) }, nil
}

// Microphone opens a capture stream.
type Microphone interface {
	Open(ctx context.Context) (Stream, error)
}

// FFmpegMicrophone records from the default input device by running ffmpeg
// with the platform capture backend and reading PCM from its stdout.
type FFmpegMicrophone struct {
	// FFmpegPath defaults to "ffmpeg" on PATH.
	FFmpegPath string
	// Device overrides the backend input name. Required on windows.
	Device string
	Format Format
	// GOOS defaults to runtime.GOOS.
	GOOS string
}

func (m *FFmpegMicrophone) Open(ctx context.Context) (Stream, error) {
	format := m.Format
	if format.SampleRate <= 0 || format.Channels <= 0 {
		format = DefaultFormat
	}
	input, err := captureInput(m.goos(), m.Device)
	if err != nil {
		return nil, err
	}
	bin := m.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}

	args := append([]string{"-hide_banner", "-loglevel", "error"}, input...)
	args = append(args,
		"-ac", strconv.Itoa(format.Channels),
		"-ar", strconv.Itoa(format.SampleRate),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"pipe:1",
	)
	cmd := exec.CommandContext(ctx, bin, args...)
	stream := &ffmpegStream{cmd: cmd, format: format}
	cmd.Stderr = &stream.stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("microphone pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", bin, err)
	}
	stream.out = stdout
	return stream, nil
}

func (m *FFmpegMicrophone) goos() string {
	if m.GOOS != "" {
		return m.GOOS
	}
	return runtime.GOOS
}

func captureInput(goos, device string) ([]string, error) {
	switch goos {
	case "linux":
		if device == "" {
			device = "default"
		}
		return []string{"-f", "alsa", "-i", device}, nil
	case "darwin":
		if device == "" {
			device = "0"
		}
		return []string{"-f", "avfoundation", "-i", ":" + device}, nil
	case "windows":
		if device == "" {
			return nil, errors.New("capture.device must name a dshow audio device on windows")
		}
		return []string{"-f", "dshow", "-i", "audio=" + device}, nil
	default:
		return nil, fmt.Errorf("microphone capture is not supported on %s", goos)
	}
}

type ffmpegStream struct {
	cmd     *exec.Cmd
	out     io.ReadCloser
	stderr  bytes.Buffer
	format  Format
	once    sync.Once
	waitErr error
}

// Read reports a failed ffmpeg exit, with its stderr, in place of a bare EOF.
func (s *ffmpegStream) Read(p []byte) (int, error) {
	n, err := s.out.Read(p)
	if errors.Is(err, io.EOF) {
		if werr := s.wait(); werr != nil {
			return n, fmt.Errorf("%w: ffmpeg: %v: %s", ErrStreamEnded, werr, strings.TrimSpace(s.stderr.String()))
		}
	}
	return n, err
}

func (s *ffmpegStream) Format() Format { return s.format }

func (s *ffmpegStream) Close() error {
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.wait()
	return nil
}

func (s *ffmpegStream) wait() error {
	s.once.Do(func() { s.waitErr = s.cmd.Wait() })
	return s.waitErr
}
