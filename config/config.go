// Package config loads the application configuration from a YAML file and
// applies defaults and validation.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sdrkit/sigstream/demod"
	"github.com/sdrkit/sigstream/dsp"
	"github.com/sdrkit/sigstream/pocsag"
	"github.com/sdrkit/sigstream/spectrum"
)

// Duration parses YAML values like "50ms" or "2s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("cannot parse duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Config is the main application configuration.
type Config struct {
	Settings  Settings       `yaml:"settings"`
	Spectrum  SpectrumConfig `yaml:"spectrum"`
	Scan      ScanConfig     `yaml:"scan"`
	Audio     AudioConfig    `yaml:"audio"`
	Decoders  DecoderConfig  `yaml:"decoders"`
	Recording RecordConfig   `yaml:"recording"`
}

// Settings represents global application settings.
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// SpectrumConfig configures the spectral engine.
type SpectrumConfig struct {
	Window         string  `yaml:"window"`
	AveragingAlpha float64 `yaml:"averagingAlpha"`
}

// ScanConfig configures the frequency scanner.
type ScanConfig struct {
	SettlingTime Duration `yaml:"settlingTime"`
	DwellTime    Duration `yaml:"dwellTime"`
}

// AudioConfig configures demodulated audio output.
type AudioConfig struct {
	OutputRate int `yaml:"outputRate"`
}

// DecoderConfig configures the protocol decoders.
type DecoderConfig struct {
	POCSAGBitrate int      `yaml:"pocsagBitrate"`
	VesselTTL     Duration `yaml:"vesselTTL"`
	Satellite     string   `yaml:"satellite"`
}

// RecordConfig represents recording storage settings.
type RecordConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Settings: Settings{
			LogLevel: "info",
		},
		Spectrum: SpectrumConfig{
			Window:         string(dsp.WindowHamming),
			AveragingAlpha: spectrum.DefaultAveragingAlpha,
		},
		Scan: ScanConfig{
			SettlingTime: Duration(50 * time.Millisecond),
			DwellTime:    Duration(100 * time.Millisecond),
		},
		Audio: AudioConfig{
			OutputRate: demod.DefaultOutputRate,
		},
		Decoders: DecoderConfig{
			POCSAGBitrate: pocsag.DefaultBitrate,
			VesselTTL:     Duration(600 * time.Second),
			Satellite:     "NOAA-19",
		},
		Recording: RecordConfig{
			DataDirectory: "recordings",
		},
	}
}

// Load reads the configuration from the given YAML file on top of the
// defaults and validates it.
func Load(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read configuration: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("cannot parse configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate checks the configuration for values the engines would reject.
func (c Config) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if !dsp.KnownWindowType(dsp.WindowType(c.Spectrum.Window)) {
		return fmt.Errorf("unknown window type %q", c.Spectrum.Window)
	}
	if c.Spectrum.AveragingAlpha <= 0 || c.Spectrum.AveragingAlpha > 1 {
		return fmt.Errorf("averaging alpha %v not in (0, 1]", c.Spectrum.AveragingAlpha)
	}
	if c.Scan.SettlingTime < 0 {
		return fmt.Errorf("negative settling time %v", c.Scan.SettlingTime)
	}
	if c.Scan.DwellTime <= 0 {
		return fmt.Errorf("dwell time %v must be positive", c.Scan.DwellTime)
	}
	if c.Audio.OutputRate <= 0 {
		return fmt.Errorf("audio output rate %d must be positive", c.Audio.OutputRate)
	}
	if c.Decoders.POCSAGBitrate <= 0 {
		return fmt.Errorf("POCSAG bitrate %d must be positive", c.Decoders.POCSAGBitrate)
	}
	if c.Decoders.VesselTTL <= 0 {
		return fmt.Errorf("vessel TTL %v must be positive", c.Decoders.VesselTTL)
	}
	if c.Recording.DataDirectory == "" {
		return fmt.Errorf("data directory must not be empty")
	}
	return nil
}

// SlogLevel maps the configured log level to its slog value.
func (c Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Settings.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", c.Settings.LogLevel)
	}
}
