package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	"github.com/harunnryd/vocalis/pkg/errorsx"
	"github.com/harunnryd/vocalis/pkg/logging"
)

// PlaybackStatus is the result of handing a file to the OS player.
type PlaybackStatus string

const (
	PlaybackPlayed  PlaybackStatus = "played"
	PlaybackSkipped PlaybackStatus = "skipped"
)

// PlaybackOutcome reports whether audio was played and, if not, why.
type PlaybackOutcome struct {
	Status  PlaybackStatus
	Reason  errorsx.ReasonCode
	Command []string
	Err     error
}

// Played reports whether the player ran to completion.
func (o PlaybackOutcome) Played() bool { return o.Status == PlaybackPlayed }

// CommandRunner runs an external program to completion.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// ExecRunner runs the command with os/exec and folds stderr into the error.
func ExecRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

type PlayerOptions struct {
	// GOOS selects the player; defaults to runtime.GOOS.
	GOOS string
	// LinuxCommand replaces "aplay"; the file path is appended.
	LinuxCommand []string
	Run          CommandRunner
	Logger       *slog.Logger
}

// Player plays audio files through the host's native command-line player.
type Player struct {
	goos   string
	linux  []string
	run    CommandRunner
	logger *slog.Logger
}

func NewPlayer(opts PlayerOptions) *Player {
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}
	if len(opts.LinuxCommand) == 0 {
		opts.LinuxCommand = []string{"aplay"}
	}
	if opts.Run == nil {
		opts.Run = ExecRunner
	}
	return &Player{
		goos:   opts.GOOS,
		linux:  opts.LinuxCommand,
		run:    opts.Run,
		logger: logging.NewComponentLogger(opts.Logger, "playback"),
	}
}

// Command returns the player invocation for path on this platform.
func (p *Player) Command(path string) ([]string, error) {
	switch p.goos {
	case "darwin":
		return []string{"afplay", path}, nil
	case "windows":
		return []string{"powershell", "-c", fmt.Sprintf(`(New-Object Media.SoundPlayer "%s").PlaySync();`, path)}, nil
	case "linux":
		cmd := append([]string(nil), p.linux...)
		return append(cmd, path), nil
	default:
		return nil, errorsx.New(errorsx.ReasonPlaybackUnsupported, "unsupported operating system: "+p.goos)
	}
}

// Play blocks until playback finishes. Failures are logged and reported in
// the outcome, never returned.
func (p *Player) Play(ctx context.Context, path string) PlaybackOutcome {
	cmd, err := p.Command(path)
	if err != nil {
		p.logger.Error("error playing audio", slog.String("error", err.Error()), slog.String("os", p.goos))
		return PlaybackOutcome{Status: PlaybackSkipped, Reason: errorsx.ReasonPlaybackUnsupported, Err: err}
	}
	if err := p.run(ctx, cmd[0], cmd[1:]...); err != nil {
		err = errorsx.Wrap(err, errorsx.ReasonPlaybackFailed)
		p.logger.Error("error playing audio", slog.String("error", err.Error()), slog.String("path", path))
		return PlaybackOutcome{Status: PlaybackSkipped, Reason: errorsx.ReasonPlaybackFailed, Command: cmd, Err: err}
	}
	p.logger.Info("audio played", slog.String("path", path), slog.String("player", cmd[0]))
	return PlaybackOutcome{Status: PlaybackPlayed, Command: cmd}
}
