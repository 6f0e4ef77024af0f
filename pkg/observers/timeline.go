package observers

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/vocalis/pkg/metrics"
	"github.com/harunnryd/vocalis/pkg/redact"
)

// TimelineObserver writes one JSONL file per pipeline run, named after the
// run id. A run's file is closed when its *_complete event arrives.
type TimelineObserver struct {
	dir   string
	mu    sync.Mutex
	files map[string]*os.File
}

func NewTimelineObserver(dir string) *TimelineObserver {
	return &TimelineObserver{dir: dir, files: make(map[string]*os.File)}
}

type timelineEvent struct {
	Time      time.Time         `json:"time"`
	Event     string            `json:"event"`
	RunID     string            `json:"run_id"`
	ElapsedMS float64           `json:"elapsed_ms,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
	Fields    map[string]any    `json:"fields,omitempty"`
}

func (o *TimelineObserver) RecordEvent(ev metrics.MetricsEvent) {
	runID := strings.TrimSpace(ev.Tags[metrics.TagRunID])
	if runID == "" || strings.TrimSpace(o.dir) == "" {
		return
	}
	line, err := json.Marshal(timelineEvent{
		Time:      ev.Time.UTC(),
		Event:     ev.Name,
		RunID:     runID,
		ElapsedMS: ev.Value,
		Tags:      withoutRunID(ev.Tags),
		Fields:    sanitizeFields(ev.Fields),
	})
	if err != nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	name := fileName(runID)
	f, err := o.open(name)
	if err != nil {
		return
	}
	_, _ = f.Write(append(line, '\n'))
	if isTerminal(ev.Name) {
		_ = f.Close()
		delete(o.files, name)
	}
}

// Close closes the files of runs that never completed.
func (o *TimelineObserver) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	var err error
	for name, f := range o.files {
		err = errors.Join(err, f.Close())
		delete(o.files, name)
	}
	return err
}

func (o *TimelineObserver) open(name string) (*os.File, error) {
	if f := o.files[name]; f != nil {
		return f, nil
	}
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(o.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	o.files[name] = f
	return f, nil
}

// fileName keeps run ids usable as file names; uuids pass unchanged.
func fileName(runID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		}
		return '_'
	}, runID)
	return safe + ".jsonl"
}

func withoutRunID(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if k == metrics.TagRunID || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// sanitizeFields passes string fields through redaction.
func sanitizeFields(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok {
			v = redact.Text(s)
		}
		out[k] = v
	}
	return out
}

var _ metrics.Observer = (*TimelineObserver)(nil)
