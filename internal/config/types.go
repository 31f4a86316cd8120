package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`

	// Partners identifies the exactly-two recipients of scheduled messages.
	Partners PartnersConfig `json:"partners"`

	// Timezone is the wall-clock zone scheduled rules are interpreted in,
	// regardless of server locale. Defaults to Europe/London.
	Timezone string `json:"timezone,omitempty"`

	AI      AIConfig      `json:"ai"`
	Storage StorageConfig `json:"storage"`
	Web     WebConfig     `json:"web"`
}

type TelegramConfig struct {
	Token string `json:"token"`

	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level string     `json:"level,omitempty"`
	File  FileConfig `json:"file,omitempty"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

type PartnersConfig struct {
	Partner1ID int64 `json:"partner1_id"`
	Partner2ID int64 `json:"partner2_id"`
}

// AIConfig points at an Ollama-compatible server used for message generation.
type AIConfig struct {
	BaseURL string `json:"base_url,omitempty"`

	// RequestTimeout bounds one generation call. Go duration string.
	RequestTimeout string `json:"request_timeout,omitempty"`
}

type StorageConfig struct {
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type WebConfig struct {
	Enabled    bool   `json:"enabled,omitempty"`
	Listen     string `json:"listen,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// envToken overrides the config-file token so the secret can stay out of the
// file entirely.
const envToken = "TELEGRAM_TOKEN"

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(envToken)); v != "" {
		c.Telegram.Token = v
	}
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.Timezone) == "" {
		c.Timezone = "Europe/London"
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if strings.TrimSpace(c.AI.BaseURL) == "" {
		c.AI.BaseURL = "http://127.0.0.1:11434"
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = "./data/couplebot.db"
	}
	if strings.TrimSpace(c.Web.Listen) == "" {
		c.Web.Listen = ":8080"
	}
	if c.Web.RatePerSec <= 0 {
		c.Web.RatePerSec = 10
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required (config or " + envToken + ")")
	}
	if c.Partners.Partner1ID == 0 || c.Partners.Partner2ID == 0 {
		return errors.New("partners.partner1_id and partners.partner2_id are required")
	}
	if c.Partners.Partner1ID == c.Partners.Partner2ID {
		return errors.New("partners must be two distinct telegram user IDs")
	}
	if _, err := time.LoadLocation(strings.TrimSpace(c.Timezone)); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	return nil
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
