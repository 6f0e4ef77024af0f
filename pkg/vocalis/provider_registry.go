package vocalis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harunnryd/vocalis/pkg/adapters/stt"
	"github.com/harunnryd/vocalis/pkg/adapters/tts"
)

// SynthesizerFactory builds one link of the synthesis chain from its vendor
// block. Missing optional credentials must not fail here; the strategy
// reports them from Ready so the chain can skip it.
type SynthesizerFactory func(cfg Config, vendor VendorConfig) (tts.Synthesizer, error)

// TranscriberFactory builds the transcription provider. A missing credential
// is an error.
type TranscriberFactory func(cfg Config, vendor VendorConfig) (stt.Transcriber, error)

type ProviderRegistry struct {
	tts map[string]SynthesizerFactory
	stt map[string]TranscriberFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		tts: make(map[string]SynthesizerFactory),
		stt: make(map[string]TranscriberFactory),
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *ProviderRegistry) RegisterSynthesizer(name string, factory SynthesizerFactory) {
	r.tts[normalizeName(name)] = factory
}

func (r *ProviderRegistry) RegisterTranscriber(name string, factory TranscriberFactory) {
	r.stt[normalizeName(name)] = factory
}

func (r *ProviderRegistry) BuildSynthesizer(cfg Config, vendor VendorConfig) (tts.Synthesizer, error) {
	fn := r.tts[normalizeName(vendor.Provider)]
	if fn == nil {
		return nil, fmt.Errorf("tts provider not registered: %s (available: %s)", vendor.Provider, strings.Join(r.Synthesizers(), ", "))
	}
	return fn(cfg, vendor)
}

func (r *ProviderRegistry) BuildTranscriber(cfg Config, vendor VendorConfig) (stt.Transcriber, error) {
	fn := r.stt[normalizeName(vendor.Provider)]
	if fn == nil {
		return nil, fmt.Errorf("stt provider not registered: %s (available: %s)", vendor.Provider, strings.Join(r.Transcribers(), ", "))
	}
	return fn(cfg, vendor)
}

// Synthesizers lists registered synthesis providers.
func (r *ProviderRegistry) Synthesizers() []string {
	return sortedKeys(r.tts)
}

// Transcribers lists registered transcription providers.
func (r *ProviderRegistry) Transcribers() []string {
	return sortedKeys(r.stt)
}

func sortedKeys[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
