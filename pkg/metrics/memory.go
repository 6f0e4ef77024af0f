package metrics

import "sync"

// MemoryObserver keeps every event; used by tests and dry runs.
type MemoryObserver struct {
	mu     sync.Mutex
	Events []MetricsEvent
}

func NewMemoryObserver() *MemoryObserver {
	return &MemoryObserver{}
}

func (m *MemoryObserver) RecordEvent(ev MetricsEvent) {
	m.mu.Lock()
	m.Events = append(m.Events, ev)
	m.mu.Unlock()
}

// Count returns how many events named name carry every tag in match.
func (m *MemoryObserver) Count(name string, match map[string]string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.Events {
		if ev.Name != name {
			continue
		}
		ok := true
		for k, v := range match {
			if ev.Tags[k] != v {
				ok = false
				break
			}
		}
		if ok {
			n++
		}
	}
	return n
}
