package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultBitrate is the MP3 bitrate for captured speech.
const DefaultBitrate = "128k"

// Transcoder converts the lossless intermediate into the distribution format.
type Transcoder interface {
	Convert(ctx context.Context, src, dst, bitrate string) error
}

// FFmpegTranscoder encodes MP3 with libmp3lame.
type FFmpegTranscoder struct {
	// Path defaults to "ffmpeg" on PATH.
	Path string
}

func (t FFmpegTranscoder) Convert(ctx context.Context, src, dst, bitrate string) error {
	if bitrate == "" {
		bitrate = DefaultBitrate
	}
	bin := t.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-codec:a", "libmp3lame",
		"-b:a", bitrate,
		dst,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg transcode %s: %w: %s", src, err, strings.TrimSpace(string(out)))
	}
	return nil
}
