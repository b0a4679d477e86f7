// Package config handles TOML-based configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration wraps time.Duration so timeouts can be written as "30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config holds all application configuration.
type Config struct {
	Telegram  Telegram  `toml:"telegram"`
	Browser   Browser   `toml:"browser"`
	Instagram Instagram `toml:"instagram"`
	Tiktok    Tiktok    `toml:"tiktok"`
	Twitter   Twitter   `toml:"twitter"`
	Journal   Journal   `toml:"journal"`
}

// Telegram configures the bot transport.
type Telegram struct {
	Token string `toml:"token"`
}

// Browser configures the shared Chromium process.
type Browser struct {
	ExecutablePath string `toml:"executable_path"`
	Headless       bool   `toml:"headless"`
}

// Instagram configures the Instagram resolution strategy.
type Instagram struct {
	Username     string   `toml:"username"`
	Password     string   `toml:"password"`
	OpenTimeout  Duration `toml:"open_timeout"`
	ProbeTimeout Duration `toml:"probe_timeout"`
}

// Tiktok configures the TikTok resolution strategy.
type Tiktok struct {
	OpenTimeout Duration `toml:"open_timeout"`
}

// Twitter configures the Twitter resolution strategy.
type Twitter struct {
	OpenTimeout Duration `toml:"open_timeout"`
	FFmpegPath  string   `toml:"ffmpeg_path"`
}

// Journal configures the delivery journal.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Browser: Browser{
			Headless: true,
		},
		Instagram: Instagram{
			OpenTimeout:  Duration{30 * time.Second},
			ProbeTimeout: Duration{10 * time.Second},
		},
		Tiktok: Tiktok{
			OpenTimeout: Duration{30 * time.Second},
		},
		Twitter: Twitter{
			OpenTimeout: Duration{30 * time.Second},
			FFmpegPath:  "ffmpeg",
		},
		Journal: Journal{
			Enabled: true,
		},
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "media-downloader-bot"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "media-downloader-bot"), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// JournalPath returns the default path to the delivery journal database.
func JournalPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "media-downloader-bot", "journal.db"), nil
}

// Load reads the config file and merges with defaults.
// If the config file doesn't exist, defaults are returned.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	if c.Instagram.OpenTimeout.Duration <= 0 {
		return fmt.Errorf("instagram open_timeout must be positive")
	}
	if c.Instagram.ProbeTimeout.Duration <= 0 {
		return fmt.Errorf("instagram probe_timeout must be positive")
	}
	if c.Tiktok.OpenTimeout.Duration <= 0 {
		return fmt.Errorf("tiktok open_timeout must be positive")
	}
	if c.Twitter.OpenTimeout.Duration <= 0 {
		return fmt.Errorf("twitter open_timeout must be positive")
	}
	if c.Twitter.FFmpegPath == "" {
		return fmt.Errorf("twitter ffmpeg_path cannot be empty")
	}
	if (c.Instagram.Username == "") != (c.Instagram.Password == "") {
		return fmt.Errorf("instagram username and password must be set together")
	}
	return nil
}

// HasInstagramLogin reports whether Instagram credentials are configured.
func (c *Config) HasInstagramLogin() bool {
	return c.Instagram.Username != "" && c.Instagram.Password != ""
}
