package vocalis

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/harunnryd/vocalis/pkg/configutil"
	"github.com/harunnryd/vocalis/pkg/errorsx"
	"github.com/harunnryd/vocalis/pkg/logging"
	"github.com/spf13/viper"
)

type Config struct {
	Environment   string              `mapstructure:"environment"`
	LogLevel      string              `mapstructure:"log_level"`
	LogFormat     string              `mapstructure:"log_format"`
	Credentials   Credentials         `mapstructure:"credentials"`
	Synthesis     SynthesisConfig     `mapstructure:"synthesis"`
	Transcription VendorConfig        `mapstructure:"transcription"`
	Capture       CaptureConfig       `mapstructure:"capture"`
	Playback      PlaybackConfig      `mapstructure:"playback"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
}

// Credentials are read once from the environment. Provider settings may
// override them with an explicit api_key.
type Credentials struct {
	ElevenLabsAPIKey string `mapstructure:"elevenlabs_api_key"`
	GroqAPIKey       string `mapstructure:"groq_api_key"`
	DeepgramAPIKey   string `mapstructure:"deepgram_api_key"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type SynthesisConfig struct {
	// Providers is the fallback chain, tried in order.
	Providers []VendorConfig `mapstructure:"providers"`
	Breaker   BreakerConfig  `mapstructure:"breaker"`
}

type BreakerConfig struct {
	Threshold  int `mapstructure:"threshold"`
	CooldownMS int `mapstructure:"cooldown_ms"`
}

type CaptureConfig struct {
	Device              string  `mapstructure:"device"`
	FFmpegPath          string  `mapstructure:"ffmpeg_path"`
	SampleRate          int     `mapstructure:"sample_rate"`
	TimeoutMS           int     `mapstructure:"timeout_ms"`
	PhraseLimitMS       int     `mapstructure:"phrase_limit_ms"`
	CalibrationMS       int     `mapstructure:"calibration_ms"`
	EnergyThreshold     float64 `mapstructure:"energy_threshold"`
	DynamicEnergy       bool    `mapstructure:"dynamic_energy"`
	PauseThresholdMS    int     `mapstructure:"pause_threshold_ms"`
	PhraseThresholdMS   int     `mapstructure:"phrase_threshold_ms"`
	NonSpeakingMS       int     `mapstructure:"non_speaking_ms"`
	Bitrate             string  `mapstructure:"bitrate"`
	IntermediateDir     string  `mapstructure:"intermediate_dir"`
	IntermediateMaxDays int     `mapstructure:"intermediate_max_days"`
}

type PlaybackConfig struct {
	Disabled     bool     `mapstructure:"disabled"`
	LinuxCommand []string `mapstructure:"linux_command"`
}

type ObservabilityConfig struct {
	MetricsPath  string `mapstructure:"metrics_path"`
	ArtifactsDir string `mapstructure:"artifacts_dir"`
	// AsyncBuffer queues events for the file sinks; zero writes inline.
	AsyncBuffer int `mapstructure:"async_buffer"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

var envBindings = map[string]string{
	"credentials.elevenlabs_api_key": "ELEVENLABS_API_KEY",
	"credentials.groq_api_key":       "GROQ_API_KEY",
	"credentials.deepgram_api_key":   "DEEPGRAM_API_KEY",
}

// LoadConfig reads the optional config file at path (YAML, TOML or JSON by
// extension), applies defaults and binds credentials from the environment.
// An empty path loads defaults and environment only.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errorsx.Wrap(fmt.Errorf("read config: %w", err), errorsx.ReasonConfigInvalid)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errorsx.Wrap(fmt.Errorf("unmarshal: %w", err), errorsx.ReasonConfigInvalid)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig is the configuration LoadConfig produces with no file and no
// environment.
func DefaultConfig() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("synthesis.providers", []map[string]any{
		{"provider": "elevenlabs"},
		{"provider": "gtts"},
	})
	v.SetDefault("synthesis.breaker.threshold", 0)
	v.SetDefault("synthesis.breaker.cooldown_ms", 30000)
	v.SetDefault("transcription.provider", "groq")
	v.SetDefault("capture.sample_rate", 16000)
	v.SetDefault("capture.timeout_ms", 20000)
	v.SetDefault("capture.phrase_limit_ms", 0)
	v.SetDefault("capture.calibration_ms", 1000)
	v.SetDefault("capture.energy_threshold", 300)
	v.SetDefault("capture.dynamic_energy", true)
	v.SetDefault("capture.pause_threshold_ms", 800)
	v.SetDefault("capture.phrase_threshold_ms", 300)
	v.SetDefault("capture.non_speaking_ms", 500)
	v.SetDefault("capture.bitrate", "128k")
	v.SetDefault("capture.intermediate_dir", "")
	v.SetDefault("capture.intermediate_max_days", 7)
	v.SetDefault("playback.disabled", false)
	v.SetDefault("observability.metrics_path", "")
	v.SetDefault("observability.artifacts_dir", "")
	v.SetDefault("observability.async_buffer", 256)
	v.SetDefault("privacy.redact_pii", true)
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.Synthesis.Providers) == 0 {
		errs = append(errs, errors.New("synthesis.providers must list at least one provider"))
	}
	for i, p := range c.Synthesis.Providers {
		if err := configutil.RequireString(p.Provider, fmt.Sprintf("synthesis.providers[%d].provider", i)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := configutil.RequireString(c.Transcription.Provider, "transcription.provider"); err != nil {
		errs = append(errs, err)
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("log_level must be one of [debug, info, warn, error], got %q", c.LogLevel))
	}
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be one of [text, json], got %q", c.LogFormat))
	}
	if c.Capture.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("capture.sample_rate must not be negative, got %d", c.Capture.SampleRate))
	}
	if c.Capture.EnergyThreshold < 0 {
		errs = append(errs, fmt.Errorf("capture.energy_threshold must not be negative, got %v", c.Capture.EnergyThreshold))
	}
	if c.Observability.AsyncBuffer < 0 {
		errs = append(errs, fmt.Errorf("observability.async_buffer must not be negative, got %d", c.Observability.AsyncBuffer))
	}
	if c.Synthesis.Breaker.Threshold < 0 {
		errs = append(errs, fmt.Errorf("synthesis.breaker.threshold must not be negative, got %d", c.Synthesis.Breaker.Threshold))
	}
	if len(errs) == 0 {
		return nil
	}
	return errorsx.Wrap(errors.Join(errs...), errorsx.ReasonConfigInvalid)
}

// ListenTimeout is the wait for speech to start. A timeout_ms of zero or
// less waits forever, which the recorder expects as a negative duration.
func (c CaptureConfig) ListenTimeout() time.Duration {
	if c.TimeoutMS == 0 {
		return -1
	}
	return configutil.MillisValue(c.TimeoutMS, -1)
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Transcription.Settings = expandSettings(cfg.Transcription.Settings)
	for i := range cfg.Synthesis.Providers {
		cfg.Synthesis.Providers[i].Settings = expandSettings(cfg.Synthesis.Providers[i].Settings)
	}
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = expandAny(v)
		}
		return out
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandValue(v.Index(i))
		}
	}
}
