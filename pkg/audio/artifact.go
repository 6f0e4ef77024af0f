// Package audio holds the local audio plumbing around the providers:
// artifact checks, WAV staging, microphone capture with energy-based
// endpointing, ffmpeg transcoding and OS playback.
package audio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Encoding identifies how an artifact is stored on disk.
type Encoding string

// EncodingMP3 is the compressed distribution format.
const EncodingMP3 Encoding = "mp3"

var (
	ErrArtifactMissing = errors.New("audio file does not exist")
	ErrArtifactEmpty   = errors.New("audio file is empty")
)

// Artifact is an audio file produced by one pipeline run.
type Artifact struct {
	Path       string
	Encoding   Encoding
	Provenance string
	Size       int64
}

// ValidateArtifact checks that path is an existing regular file with a size
// strictly greater than zero and returns that size.
func ValidateArtifact(path string) (int64, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
	}
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%w: %s is not a regular file", ErrArtifactMissing, path)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("%w: %s", ErrArtifactEmpty, path)
	}
	return info.Size(), nil
}

// WriteArtifact replaces the file at path with data, creating parent
// directories. Existing content is truncated, never appended to.
func WriteArtifact(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create artifact dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}
