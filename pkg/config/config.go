package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config is the full ttsgate configuration, loaded once at startup and
// passed by reference into every component. There are no package-level
// config globals anywhere else in the tree.
type Config struct {
	// DatabaseURL selects the datastore. postgres:// / postgresql:// URIs
	// open the pgx driver; anything else is treated as a SQLite file path.
	DatabaseURL string `json:"database_url" env:"TTSGATE_DATABASE_URL"`

	// Provider selects the speech backend: "polly" or "http"
	// (OpenAI-compatible /v1/audio/speech server).
	Provider    string `json:"provider" env:"TTSGATE_PROVIDER"`
	ProviderURL string `json:"provider_url" env:"TTSGATE_PROVIDER_URL"`

	AWSAccessKeyID     string `json:"aws_access_key_id" env:"TTSGATE_AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `json:"aws_secret_access_key" env:"TTSGATE_AWS_SECRET_ACCESS_KEY"`
	AWSRegion          string `json:"aws_region" env:"TTSGATE_AWS_REGION"`
	VoiceID            string `json:"voice_id" env:"TTSGATE_VOICE_ID"`

	// FileLocation is the storage root for rendered audio files.
	FileLocation string `json:"file_location" env:"TTSGATE_FILE_LOCATION"`

	Port int `json:"port" env:"TTSGATE_PORT"`

	// Token is the shared static API token checked against the
	// Authorization header.
	Token string `json:"token" env:"TTSGATE_TOKEN"`

	RatelimitExpireSeconds int     `json:"ratelimit_expire_seconds" env:"TTSGATE_RATELIMIT_EXPIRE_SECONDS"`
	RatelimitTextLength    int     `json:"ratelimit_text_length" env:"TTSGATE_RATELIMIT_TEXT_LENGTH"`
	RatelimitBypassIDs     []int64 `json:"ratelimit_bypass_ids" env:"TTSGATE_RATELIMIT_BYPASS_IDS" envSeparator:","`

	SynthTimeoutSeconds int `json:"synth_timeout_seconds" env:"TTSGATE_SYNTH_TIMEOUT_SECONDS"`

	LogLevel string `json:"log_level" env:"TTSGATE_LOG_LEVEL"`
	LogFile  string `json:"log_file" env:"TTSGATE_LOG_FILE"`
}

// DefaultConfig returns the baseline configuration before file and env
// overrides are applied.
func DefaultConfig() *Config {
	return &Config{
		DatabaseURL:            "ttsgate.db",
		Provider:               "polly",
		AWSRegion:              "eu-west-1",
		VoiceID:                "Brian",
		FileLocation:           "audios",
		Port:                   5000,
		RatelimitExpireSeconds: 86400,
		RatelimitTextLength:    500,
		SynthTimeoutSeconds:    30,
		LogLevel:               "info",
	}
}

// LoadConfig reads the JSON config at path, then applies environment
// overrides. A missing file is not an error; defaults plus env apply.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Token == "" {
		return fmt.Errorf("config: token must be set")
	}
	if c.FileLocation == "" {
		return fmt.Errorf("config: file_location must be set")
	}
	if c.RatelimitExpireSeconds <= 0 {
		return fmt.Errorf("config: ratelimit_expire_seconds must be positive")
	}
	if c.RatelimitTextLength <= 0 {
		return fmt.Errorf("config: ratelimit_text_length must be positive")
	}
	return nil
}

// SaveConfig writes cfg as indented JSON, creating parent directories.
func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0o600)
}

// BypassSet returns the rate-limit bypass ids as a set.
func (c *Config) BypassSet() map[int64]struct{} {
	set := make(map[int64]struct{}, len(c.RatelimitBypassIDs))
	for _, id := range c.RatelimitBypassIDs {
		set[id] = struct{}{}
	}
	return set
}
