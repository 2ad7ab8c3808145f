// Package config provides configuration management for ponisha-watch.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables (optionally read from a .env file). Command-line flags
// are applied on top by the cli package.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pfrederiksen/ponisha-watch/internal/scraper"
	"github.com/pfrederiksen/ponisha-watch/internal/storage"
	"github.com/pfrederiksen/ponisha-watch/internal/telegram"
)

const (
	ChannelTelegram = "telegram"
	ChannelTwitter  = "twitter"

	DefaultPageURL       = scraper.ProjectsURL
	DefaultMaxProjects   = scraper.DefaultMaxProjects
	DefaultStateFile     = storage.DefaultStateFile
	DefaultStateBackend  = storage.BackendFile
	DefaultFetchTimeout  = scraper.Timeout
	DefaultNotifyTimeout = telegram.DefaultTimeout
	DefaultSendInterval  = time.Second
	DefaultTelegramAPI   = telegram.DefaultAPIBaseURL
)

// Config represents the application configuration
type Config struct {
	PageURL       string         `yaml:"page_url"`
	MaxProjects   int            `yaml:"max_projects"`
	LogLevel      string         `yaml:"log_level"`
	Channel       string         `yaml:"channel"` // telegram or twitter
	DryRun        bool           `yaml:"dry_run"`
	SendInterval  time.Duration  `yaml:"send_interval"`  // minimum gap between notifications
	NotifyTimeout time.Duration  `yaml:"notify_timeout"` // bound on each notification, any channel
	State         StateConfig    `yaml:"state"`
	Scraper       ScraperConfig  `yaml:"scraper"`
	Telegram      TelegramConfig `yaml:"telegram"`
	Twitter       TwitterConfig  `yaml:"twitter"`
	Filter        FilterConfig   `yaml:"filter"`
}

// StateConfig selects where seen project IDs are kept
type StateConfig struct {
	Backend string `yaml:"backend"` // file or sqlite
	Path    string `yaml:"path"`
}

// ScraperConfig configures the page fetch
type ScraperConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	SkipMalformed bool          `yaml:"skip_malformed"`
}

// TelegramConfig holds Bot API credentials
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	APIURL   string `yaml:"api_url"`
}

// TwitterConfig holds OAuth1 credentials for the twitter channel
type TwitterConfig struct {
	APIKey       string `yaml:"api_key"`
	APISecret    string `yaml:"api_secret"`
	AccessToken  string `yaml:"access_token"`
	AccessSecret string `yaml:"access_secret"`
}

// FilterConfig lists keywords for announcing only some new projects
type FilterConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		PageURL:       DefaultPageURL,
		MaxProjects:   DefaultMaxProjects,
		LogLevel:      "info",
		Channel:       ChannelTelegram,
		SendInterval:  DefaultSendInterval,
		NotifyTimeout: DefaultNotifyTimeout,
		State: StateConfig{
			Backend: DefaultStateBackend,
			Path:    DefaultStateFile,
		},
		Scraper: ScraperConfig{
			Timeout: DefaultFetchTimeout,
		},
		Telegram: TelegramConfig{
			APIURL: DefaultTelegramAPI,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304 -- path is provided by user as configuration file path
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEnvFile loads variables from a .env file into the process environment.
// Variables already set are not overridden. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.PageURL, "PONISHA_URL")
	setString(&c.LogLevel, "PONISHA_LOG_LEVEL")
	setString(&c.Channel, "PONISHA_CHANNEL")
	setString(&c.State.Backend, "PONISHA_STATE_BACKEND")
	setString(&c.State.Path, "PONISHA_STATE_FILE")

	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&c.Telegram.APIURL, "TELEGRAM_API_URL")

	setString(&c.Twitter.APIKey, "TWITTER_API_KEY")
	setString(&c.Twitter.APISecret, "TWITTER_API_SECRET")
	setString(&c.Twitter.AccessToken, "TWITTER_ACCESS_TOKEN")
	setString(&c.Twitter.AccessSecret, "TWITTER_ACCESS_SECRET")

	if v := os.Getenv("PONISHA_MAX_PROJECTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PONISHA_MAX_PROJECTS %q: %w", v, err)
		}
		c.MaxProjects = n
	}

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks that the configuration can drive a run
func (c *Config) Validate() error {
	if c.PageURL == "" {
		return fmt.Errorf("page URL is required")
	}
	if c.MaxProjects <= 0 {
		return fmt.Errorf("max projects must be positive, got %d", c.MaxProjects)
	}
	if c.SendInterval < 0 {
		return fmt.Errorf("send interval must not be negative")
	}
	if c.NotifyTimeout <= 0 {
		return fmt.Errorf("notify timeout must be positive, got %s", c.NotifyTimeout)
	}

	switch strings.ToLower(c.State.Backend) {
	case "", storage.BackendFile, storage.BackendSQLite:
	default:
		return fmt.Errorf("invalid state backend: %s (must be 'file' or 'sqlite')", c.State.Backend)
	}

	switch strings.ToLower(c.Channel) {
	case ChannelTelegram:
		if c.DryRun {
			return nil
		}
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("bot token is required (set telegram.bot_token or TELEGRAM_BOT_TOKEN env var)")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("chat ID is required (set telegram.chat_id or TELEGRAM_CHAT_ID env var)")
		}
	case ChannelTwitter:
		if c.DryRun {
			return nil
		}
		t := c.Twitter
		if t.APIKey == "" || t.APISecret == "" || t.AccessToken == "" || t.AccessSecret == "" {
			return fmt.Errorf("missing required Twitter credentials (TWITTER_API_KEY, TWITTER_API_SECRET, TWITTER_ACCESS_TOKEN, TWITTER_ACCESS_SECRET)")
		}
	default:
		return fmt.Errorf("invalid channel: %s (must be 'telegram' or 'twitter')", c.Channel)
	}

	return nil
}
