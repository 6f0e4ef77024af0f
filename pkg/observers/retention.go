package observers

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Retention deletes leftover pipeline files, such as the lossless
// recordings kept after a failed transcode, once they are older than MaxAge.
type Retention struct {
	Dir string
	// Pattern is a filepath.Match glob; empty matches every file.
	Pattern string
	MaxAge  time.Duration
	Now     func() time.Time
}

// Purge removes expired files and returns their paths. A missing directory
// or a non-positive MaxAge is a no-op. Per-file failures are joined into the
// returned error without stopping the sweep.
func (r Retention) Purge() ([]string, error) {
	if r.Dir == "" || r.MaxAge <= 0 {
		return nil, nil
	}
	pattern := r.Pattern
	if pattern == "" {
		pattern = "*"
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, err
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	entries, err := os.ReadDir(r.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cutoff := now().Add(-r.MaxAge)
	var removed []string
	var errs error
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if ok, _ := filepath.Match(pattern, entry.Name()); !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(r.Dir, entry.Name())
		if err := os.Remove(path); err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		removed = append(removed, path)
	}
	return removed, errs
}
