package vocalis

import (
	"errors"
	"fmt"
	"time"

	"github.com/harunnryd/vocalis/pkg/adapters/stt"
	"github.com/harunnryd/vocalis/pkg/adapters/tts"
	"github.com/harunnryd/vocalis/pkg/configutil"
	"github.com/harunnryd/vocalis/pkg/errorsx"
	"github.com/harunnryd/vocalis/pkg/providers/deepgram"
	"github.com/harunnryd/vocalis/pkg/providers/elevenlabs"
	"github.com/harunnryd/vocalis/pkg/providers/groq"
	"github.com/harunnryd/vocalis/pkg/providers/gtts"
	"github.com/harunnryd/vocalis/pkg/providers/mock"
)

type elevenlabsSettings struct {
	APIKey          string        `mapstructure:"api_key"`
	VoiceID         string        `mapstructure:"voice_id"`
	ModelID         string        `mapstructure:"model_id"`
	OutputFormat    string        `mapstructure:"output_format"`
	BaseURL         string        `mapstructure:"base_url"`
	Stability       float64       `mapstructure:"stability"`
	SimilarityBoost float64       `mapstructure:"similarity_boost"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type gttsSettings struct {
	Language string        `mapstructure:"language"`
	Slow     bool          `mapstructure:"slow"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type mockTTSSettings struct {
	Name     string `mapstructure:"name"`
	Audio    string `mapstructure:"audio"`
	Empty    bool   `mapstructure:"empty"`
	Error    string `mapstructure:"error"`
	NotReady string `mapstructure:"not_ready"`
}

type groqSettings struct {
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	Language string `mapstructure:"language"`
	BaseURL  string `mapstructure:"base_url"`
}

type deepgramSettings struct {
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	Language    string `mapstructure:"language"`
	Host        string `mapstructure:"host"`
	SmartFormat *bool  `mapstructure:"smart_format"`
}

type mockSTTSettings struct {
	Transcript string `mapstructure:"transcript"`
	Error      string `mapstructure:"error"`
}

// DefaultProviders returns a registry with every built-in provider.
func DefaultProviders() *ProviderRegistry {
	reg := NewProviderRegistry()
	registerProviders(reg)
	return reg
}

func registerProviders(reg *ProviderRegistry) {
	reg.RegisterSynthesizer("elevenlabs", func(cfg Config, vendor VendorConfig) (tts.Synthesizer, error) {
		if err := validateSettings(vendor, configutil.Schema{
			Optional: []string{"api_key", "voice_id", "model_id", "output_format", "base_url", "stability", "similarity_boost", "timeout"},
		}); err != nil {
			return nil, err
		}
		var settings elevenlabsSettings
		if err := configutil.DecodeSettings(vendor.Settings, &settings); err != nil {
			return nil, err
		}
		return elevenlabs.New(elevenlabs.Config{
			APIKey:          configutil.StringValue(settings.APIKey, cfg.Credentials.ElevenLabsAPIKey),
			VoiceID:         settings.VoiceID,
			ModelID:         settings.ModelID,
			OutputFormat:    settings.OutputFormat,
			BaseURL:         settings.BaseURL,
			Stability:       settings.Stability,
			SimilarityBoost: settings.SimilarityBoost,
			Timeout:         settings.Timeout,
		}), nil
	})

	reg.RegisterSynthesizer("gtts", func(cfg Config, vendor VendorConfig) (tts.Synthesizer, error) {
		if err := validateSettings(vendor, configutil.Schema{
			Optional: []string{"language", "slow", "base_url", "timeout"},
		}); err != nil {
			return nil, err
		}
		var settings gttsSettings
		if err := configutil.DecodeSettings(vendor.Settings, &settings); err != nil {
			return nil, err
		}
		return gtts.New(gtts.Config{
			Language: settings.Language,
			Slow:     settings.Slow,
			BaseURL:  settings.BaseURL,
			Timeout:  settings.Timeout,
		}), nil
	})

	reg.RegisterSynthesizer("mock", func(cfg Config, vendor VendorConfig) (tts.Synthesizer, error) {
		if err := validateSettings(vendor, configutil.Schema{
			Optional: []string{"name", "audio", "empty", "error", "not_ready"},
		}); err != nil {
			return nil, err
		}
		var settings mockTTSSettings
		if err := configutil.DecodeSettings(vendor.Settings, &settings); err != nil {
			return nil, err
		}
		mc := mock.TTSConfig{
			Name:  settings.Name,
			Empty: settings.Empty,
			Err:   errorOrNil(settings.Error, errorsx.ReasonTTSSynthesize),
		}
		if settings.Audio != "" {
			mc.Audio = []byte(settings.Audio)
		}
		mc.NotReady = errorOrNil(settings.NotReady, errorsx.ReasonConfigMissingCredential)
		return mock.NewTTS(mc), nil
	})

	reg.RegisterTranscriber("groq", func(cfg Config, vendor VendorConfig) (stt.Transcriber, error) {
		if err := validateSettings(vendor, configutil.Schema{
			Optional: []string{"api_key", "model", "language", "base_url"},
		}); err != nil {
			return nil, err
		}
		var settings groqSettings
		if err := configutil.DecodeSettings(vendor.Settings, &settings); err != nil {
			return nil, err
		}
		return groq.New(groq.Config{
			APIKey:   configutil.StringValue(settings.APIKey, cfg.Credentials.GroqAPIKey),
			Model:    settings.Model,
			Language: settings.Language,
			BaseURL:  settings.BaseURL,
		})
	})

	reg.RegisterTranscriber("deepgram", func(cfg Config, vendor VendorConfig) (stt.Transcriber, error) {
		if err := validateSettings(vendor, configutil.Schema{
			Optional: []string{"api_key", "model", "language", "host", "smart_format"},
		}); err != nil {
			return nil, err
		}
		var settings deepgramSettings
		if err := configutil.DecodeSettings(vendor.Settings, &settings); err != nil {
			return nil, err
		}
		return deepgram.New(deepgram.Config{
			APIKey:      configutil.StringValue(settings.APIKey, cfg.Credentials.DeepgramAPIKey),
			Model:       settings.Model,
			Language:    settings.Language,
			Host:        settings.Host,
			SmartFormat: configutil.BoolValue(settings.SmartFormat, true),
		})
	})

	reg.RegisterTranscriber("mock", func(cfg Config, vendor VendorConfig) (stt.Transcriber, error) {
		if err := validateSettings(vendor, configutil.Schema{
			Optional: []string{"transcript", "error"},
		}); err != nil {
			return nil, err
		}
		var settings mockSTTSettings
		if err := configutil.DecodeSettings(vendor.Settings, &settings); err != nil {
			return nil, err
		}
		return mock.NewSTT(mock.STTConfig{
			Transcript: settings.Transcript,
			Err:        errorOrNil(settings.Error, errorsx.ReasonSTTTranscribe),
		}), nil
	})
}

func validateSettings(vendor VendorConfig, schema configutil.Schema) error {
	schema.Name = vendor.Provider
	if err := configutil.ValidateSettings(vendor.Settings, schema); err != nil {
		return errorsx.Wrap(fmt.Errorf("invalid provider settings: %w", err), errorsx.ReasonConfigInvalid)
	}
	return nil
}

func errorOrNil(msg string, reason errorsx.ReasonCode) error {
	if msg == "" {
		return nil
	}
	return errorsx.Wrap(errors.New(msg), reason)
}
