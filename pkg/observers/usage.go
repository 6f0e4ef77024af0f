package observers

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/vocalis/pkg/metrics"
)

// ProviderUsage totals the billable work sent to one provider.
type ProviderUsage struct {
	Provider   string  `json:"provider"`
	Attempts   int     `json:"attempts"`
	Successes  int     `json:"successes"`
	Failures   int     `json:"failures"`
	Skipped    int     `json:"skipped"`
	Characters int     `json:"characters"`
	AudioSec   float64 `json:"audio_seconds"`
	LatencyMS  float64 `json:"latency_ms"`
}

// UsageSummary is written to usage.json when the observer closes.
type UsageSummary struct {
	Providers     []ProviderUsage `json:"providers"`
	CapturedSec   float64         `json:"captured_audio_seconds"`
	RecordedAtUTC string          `json:"recorded_at_utc"`
}

// UsageObserver accumulates per-provider synthesis characters and
// transcribed audio seconds across a process lifetime.
type UsageObserver struct {
	dir      string
	mu       sync.Mutex
	stats    map[string]*ProviderUsage
	captured float64
}

func NewUsageObserver(dir string) *UsageObserver {
	return &UsageObserver{dir: dir, stats: make(map[string]*ProviderUsage)}
}

func (o *UsageObserver) RecordEvent(ev metrics.MetricsEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch ev.Name {
	case metrics.EventSynthesisAttempt:
		stat := o.stat(ev.Tags[metrics.TagProvider])
		if stat == nil {
			return
		}
		switch ev.Tags[metrics.TagStatus] {
		case "skipped":
			stat.Skipped++
			return
		case "succeeded":
			stat.Successes++
		default:
			stat.Failures++
		}
		stat.Attempts++
		stat.LatencyMS += ev.Value
		stat.Characters += intField(ev.Fields, metrics.FieldChars)

	case metrics.EventCaptureComplete:
		sec := floatField(ev.Fields, metrics.FieldAudioSec)
		if ev.Tags[metrics.TagStatus] == "captured" && sec > 0 {
			o.captured += sec
		}

	case metrics.EventTranscriptionComplete:
		stat := o.stat(ev.Tags[metrics.TagProvider])
		if stat == nil || ev.Tags[metrics.TagStatus] == "invalid" {
			return
		}
		stat.Attempts++
		stat.LatencyMS += ev.Value
		if ev.Tags[metrics.TagStatus] == "recognized" {
			stat.Successes++
		} else {
			stat.Failures++
		}
	}
}

// Summary returns the totals sorted by provider name.
func (o *UsageObserver) Summary() UsageSummary {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := UsageSummary{CapturedSec: o.captured}
	for _, s := range o.stats {
		out.Providers = append(out.Providers, *s)
	}
	sort.Slice(out.Providers, func(i, j int) bool {
		return out.Providers[i].Provider < out.Providers[j].Provider
	})
	return out
}

// Close writes usage.json to the observer directory.
func (o *UsageObserver) Close() error {
	if strings.TrimSpace(o.dir) == "" {
		return nil
	}
	summary := o.Summary()
	summary.RecordedAtUTC = time.Now().UTC().Format(time.RFC3339)
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(o.dir, "usage.json"), b, 0o644); err != nil {
		return errors.Join(errors.New("write usage summary"), err)
	}
	return nil
}

func (o *UsageObserver) stat(provider string) *ProviderUsage {
	if provider == "" {
		return nil
	}
	s := o.stats[provider]
	if s == nil {
		s = &ProviderUsage{Provider: provider}
		o.stats[provider] = s
	}
	return s
}

func intField(fields map[string]any, key string) int {
	switch v := fields[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func floatField(fields map[string]any, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

var _ metrics.Observer = (*UsageObserver)(nil)
