package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/ponisha-watch/internal/scraper"
	"github.com/pfrederiksen/ponisha-watch/internal/storage"
	"github.com/pfrederiksen/ponisha-watch/internal/telegram"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PONISHA_URL", "PONISHA_LOG_LEVEL", "PONISHA_CHANNEL", "PONISHA_STATE_BACKEND",
		"PONISHA_STATE_FILE", "PONISHA_MAX_PROJECTS", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
		"TELEGRAM_API_URL", "TWITTER_API_KEY", "TWITTER_API_SECRET", "TWITTER_ACCESS_TOKEN",
		"TWITTER_ACCESS_SECRET",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.PageURL != DefaultPageURL {
		t.Errorf("PageURL = %q, want %q", cfg.PageURL, DefaultPageURL)
	}
	if cfg.MaxProjects != 25 {
		t.Errorf("MaxProjects = %d, want 25", cfg.MaxProjects)
	}
	if cfg.State.Path != "last_sent" || cfg.State.Backend != "file" {
		t.Errorf("State = %+v", cfg.State)
	}
	if cfg.Scraper.Timeout != 30*time.Second {
		t.Errorf("Scraper.Timeout = %v, want 30s", cfg.Scraper.Timeout)
	}
	if cfg.NotifyTimeout != 10*time.Second {
		t.Errorf("NotifyTimeout = %v, want 10s", cfg.NotifyTimeout)
	}
	if cfg.Telegram.BotToken != "" || cfg.Telegram.ChatID != "" {
		t.Error("credentials must have no defaults")
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
max_projects: 10
log_level: debug
send_interval: 2s
notify_timeout: 5s
state:
  backend: sqlite
  path: /var/lib/ponisha-watch/state.db
scraper:
  timeout: 15s
  skip_malformed: true
telegram:
  bot_token: file-token
  chat_id: "-100123"
filter:
  include: [golang, backend]
  exclude: [wordpress]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.MaxProjects != 10 {
		t.Errorf("MaxProjects = %d, want 10", cfg.MaxProjects)
	}
	if cfg.SendInterval != 2*time.Second {
		t.Errorf("SendInterval = %v, want 2s", cfg.SendInterval)
	}
	if cfg.State.Backend != "sqlite" || cfg.State.Path != "/var/lib/ponisha-watch/state.db" {
		t.Errorf("State = %+v", cfg.State)
	}
	if cfg.Scraper.Timeout != 15*time.Second || !cfg.Scraper.SkipMalformed {
		t.Errorf("Scraper = %+v", cfg.Scraper)
	}
	if cfg.Telegram.BotToken != "file-token" || cfg.Telegram.ChatID != "-100123" {
		t.Errorf("Telegram = %+v", cfg.Telegram)
	}
	if cfg.NotifyTimeout != 5*time.Second {
		t.Errorf("NotifyTimeout = %v, want 5s", cfg.NotifyTimeout)
	}
	// Unset keys keep their defaults
	if cfg.Telegram.APIURL != DefaultTelegramAPI {
		t.Errorf("Telegram.APIURL = %q, want default", cfg.Telegram.APIURL)
	}
	if len(cfg.Filter.Include) != 2 || len(cfg.Filter.Exclude) != 1 {
		t.Errorf("Filter = %+v", cfg.Filter)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("telegram:\n  bot_token: file-token\n  chat_id: file-chat\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("PONISHA_MAX_PROJECTS", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Telegram.BotToken != "env-token" {
		t.Errorf("BotToken = %q, want env-token", cfg.Telegram.BotToken)
	}
	if cfg.Telegram.ChatID != "file-chat" {
		t.Errorf("ChatID = %q, want file-chat", cfg.Telegram.ChatID)
	}
	if cfg.MaxProjects != 5 {
		t.Errorf("MaxProjects = %d, want 5", cfg.MaxProjects)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() with missing explicit file expected error")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("max_projects: [not a number"), 0644)
	if _, err := Load(bad); err == nil {
		t.Error("Load() with invalid YAML expected error")
	}

	t.Setenv("PONISHA_MAX_PROJECTS", "many")
	if _, err := Load(""); err == nil {
		t.Error("Load() with invalid PONISHA_MAX_PROJECTS expected error")
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)

	if err := LoadEnvFile(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("LoadEnvFile() missing file error = %v, want nil", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	os.WriteFile(path, []byte("TELEGRAM_CHAT_ID=from-dotenv\n"), 0644)
	os.Unsetenv("TELEGRAM_CHAT_ID")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error: %v", err)
	}
	if got := os.Getenv("TELEGRAM_CHAT_ID"); got != "from-dotenv" {
		t.Errorf("TELEGRAM_CHAT_ID = %q, want from-dotenv", got)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Telegram.BotToken = "token"
		c.Telegram.ChatID = "chat"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid telegram", func(c *Config) {}, ""},
		{"missing token", func(c *Config) { c.Telegram.BotToken = "" }, "set telegram.bot_token or TELEGRAM_BOT_TOKEN"},
		{"missing chat", func(c *Config) { c.Telegram.ChatID = "" }, "set telegram.chat_id or TELEGRAM_CHAT_ID"},
		{"dry run needs no credentials", func(c *Config) { c.Telegram = TelegramConfig{}; c.DryRun = true }, ""},
		{"zero cap", func(c *Config) { c.MaxProjects = 0 }, "max projects"},
		{"negative interval", func(c *Config) { c.SendInterval = -time.Second }, "send interval"},
		{"zero notify timeout", func(c *Config) { c.NotifyTimeout = 0 }, "notify timeout"},
		{"bad backend", func(c *Config) { c.State.Backend = "redis" }, "state backend"},
		{"bad channel", func(c *Config) { c.Channel = "email" }, "invalid channel"},
		{"twitter without credentials", func(c *Config) { c.Channel = ChannelTwitter }, "Twitter credentials"},
		{"twitter with credentials", func(c *Config) {
			c.Channel = ChannelTwitter
			c.Twitter = TwitterConfig{APIKey: "k", APISecret: "s", AccessToken: "t", AccessSecret: "a"}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)

			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
			// Hints may only name config keys and env vars; the CLI has no credential flags
			if err != nil && strings.Contains(err.Error(), "--") {
				t.Errorf("Validate() error %q refers to a command-line flag", err)
			}
		})
	}
}

func TestDefault_MatchesComponents(t *testing.T) {
	cfg := Default()

	if cfg.MaxProjects != scraper.DefaultMaxProjects {
		t.Errorf("MaxProjects = %d, scraper default is %d", cfg.MaxProjects, scraper.DefaultMaxProjects)
	}
	if cfg.PageURL != scraper.ProjectsURL {
		t.Errorf("PageURL = %q, scraper default is %q", cfg.PageURL, scraper.ProjectsURL)
	}
	if cfg.Scraper.Timeout != scraper.Timeout {
		t.Errorf("Scraper.Timeout = %v, scraper default is %v", cfg.Scraper.Timeout, scraper.Timeout)
	}
	if cfg.State.Path != storage.DefaultStateFile || cfg.State.Backend != storage.BackendFile {
		t.Errorf("State = %+v, storage default is %s/%s", cfg.State, storage.BackendFile, storage.DefaultStateFile)
	}
	if cfg.NotifyTimeout != telegram.DefaultTimeout || cfg.Telegram.APIURL != telegram.DefaultAPIBaseURL {
		t.Errorf("notify defaults = %v/%q, want telegram defaults", cfg.NotifyTimeout, cfg.Telegram.APIURL)
	}
}
