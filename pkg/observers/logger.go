package observers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/harunnryd/vocalis/pkg/metrics"
)

// LoggerObserver mirrors pipeline events into the log. Run summaries
// (the *_complete events) log at info, everything else at debug.
type LoggerObserver struct {
	log *slog.Logger
}

func NewLoggerObserver(log *slog.Logger) *LoggerObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LoggerObserver{log: log}
}

func (o *LoggerObserver) RecordEvent(ev metrics.MetricsEvent) {
	level := slog.LevelDebug
	if isTerminal(ev.Name) {
		level = slog.LevelInfo
	}
	ctx := context.Background()
	if !o.log.Enabled(ctx, level) {
		return
	}

	attrs := make([]slog.Attr, 0, len(ev.Tags)+len(ev.Fields)+1)
	attrs = append(attrs, slog.Float64("elapsed_ms", ev.Value))
	for _, k := range sortedKeys(ev.Tags) {
		if v := ev.Tags[k]; v != "" {
			attrs = append(attrs, slog.String(k, v))
		}
	}
	for _, k := range sortedKeys(ev.Fields) {
		attrs = append(attrs, slog.Any(k, ev.Fields[k]))
	}
	o.log.LogAttrs(ctx, level, ev.Name, attrs...)
}

func isTerminal(name string) bool {
	return strings.HasSuffix(name, "_complete")
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MultiObserver fans an event out to several observers and closes the
// ones that hold files.
type MultiObserver struct {
	list []metrics.Observer
}

func NewMultiObserver(list ...metrics.Observer) *MultiObserver {
	return &MultiObserver{list: list}
}

func (m *MultiObserver) RecordEvent(ev metrics.MetricsEvent) {
	for _, obs := range m.list {
		if obs != nil {
			obs.RecordEvent(ev)
		}
	}
}

// Close closes every member implementing io.Closer, in order.
func (m *MultiObserver) Close() error {
	var err error
	for _, obs := range m.list {
		if c, ok := obs.(io.Closer); ok {
			err = errors.Join(err, c.Close())
		}
	}
	return err
}

var (
	_ metrics.Observer = (*LoggerObserver)(nil)
	_ metrics.Observer = (*MultiObserver)(nil)
)
