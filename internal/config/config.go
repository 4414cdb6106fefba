// Package config loads runtime settings for the server and CLI.
//
// Values come from, in increasing priority: built-in defaults, an optional
// YAML file, and KARAOKE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/himanishpuri/KaraokeScore/pkg/karaoke"
)

const EnvPrefix = "KARAOKE"

type Config struct {
	TranscriptionURL    string        `mapstructure:"transcription_url"`
	PitchURL            string        `mapstructure:"pitch_url"`
	ChunkSeconds        int           `mapstructure:"chunk_seconds"`
	PacingDelay         time.Duration `mapstructure:"pacing_delay"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	MinRecordingSeconds float64       `mapstructure:"min_recording_seconds"`
	DBPath              string        `mapstructure:"db_path"`
	TempDir             string        `mapstructure:"temp_dir"`
	LogLevel            string        `mapstructure:"log_level"`
	LogFormat           string        `mapstructure:"log_format"`
	Port                string        `mapstructure:"port"`
	AllowedOrigins      []string      `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("transcription_url", "")
	v.SetDefault("pitch_url", "")
	v.SetDefault("chunk_seconds", 30)
	v.SetDefault("pacing_delay", "3s")
	v.SetDefault("request_timeout", "5m")
	v.SetDefault("min_recording_seconds", 30)
	v.SetDefault("db_path", "karaoke.sqlite3")
	v.SetDefault("temp_dir", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("port", "8080")
	v.SetDefault("allowed_origins", []string{"*"})
}

// Load reads configuration. An empty path searches ./karaoke.yaml and
// ./config/karaoke.yaml and carries on without a file if neither exists.
// An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("karaoke")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.AllowedOrigins = splitOrigins(cfg.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges. Service URLs are not required here; the scoring
// service reports them missing when it is built.
func (c *Config) Validate() error {
	if c.ChunkSeconds <= 0 {
		return fmt.Errorf("chunk_seconds must be positive, got %d", c.ChunkSeconds)
	}
	if c.PacingDelay < 0 {
		return fmt.Errorf("pacing_delay must not be negative, got %s", c.PacingDelay)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.MinRecordingSeconds < 0 {
		return fmt.Errorf("min_recording_seconds must not be negative, got %g", c.MinRecordingSeconds)
	}
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	return nil
}

// ServiceOptions maps the settings onto scoring service options.
func (c *Config) ServiceOptions() []karaoke.Option {
	return []karaoke.Option{
		karaoke.WithTranscriptionURL(c.TranscriptionURL),
		karaoke.WithPitchURL(c.PitchURL),
		karaoke.WithChunkSeconds(c.ChunkSeconds),
		karaoke.WithPacingDelay(c.PacingDelay),
		karaoke.WithRequestTimeout(c.RequestTimeout),
		karaoke.WithMinRecordingSeconds(c.MinRecordingSeconds),
		karaoke.WithDBPath(c.DBPath),
		karaoke.WithTempDir(c.TempDir),
	}
}

// splitOrigins accepts both a YAML list and a comma separated env value.
func splitOrigins(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
