package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Critical error policies.
const (
	// OnCriticalAbort terminates the whole process on an unexpected task error.
	OnCriticalAbort = "abort"
	// OnCriticalContinue counts an unexpected task error as a failed download.
	OnCriticalContinue = "continue"
)

// Config holds all application configuration.
type Config struct {
	Download DownloadConfig `yaml:"download"`
	Worker   WorkerConfig   `yaml:"worker"`
	Engine   EngineConfig   `yaml:"engine"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Log      LogConfig      `yaml:"log"`
}

// DownloadConfig holds per-run download settings.
type DownloadConfig struct {
	CookiesPath    string `yaml:"cookies" envconfig:"XDL_COOKIES"`
	OutputTemplate string `yaml:"output" envconfig:"XDL_OUTPUT"`
	OnCritical     string `yaml:"on_critical" envconfig:"XDL_ON_CRITICAL"`
}

// WorkerConfig holds worker pool configuration.
type WorkerConfig struct {
	Threads int `yaml:"threads" envconfig:"XDL_THREADS"`
}

// EngineConfig configures the yt-dlp engine and the optional accelerator.
type EngineConfig struct {
	Binary              string `yaml:"binary" envconfig:"XDL_YTDLP_PATH"`
	CookieFile          string `yaml:"cookie_file" envconfig:"XDL_ENGINE_COOKIES"`
	Format              string `yaml:"format" envconfig:"XDL_FORMAT"`
	ConcurrentFragments int    `yaml:"concurrent_fragments" envconfig:"XDL_CONCURRENT_FRAGMENTS"`
	HTTPChunkSize       string `yaml:"http_chunk_size" envconfig:"XDL_HTTP_CHUNK_SIZE"`
	Retries             int    `yaml:"retries" envconfig:"XDL_RETRIES"`
	FragmentRetries     int    `yaml:"fragment_retries" envconfig:"XDL_FRAGMENT_RETRIES"`

	// Accelerator is the external transfer binary used when found on PATH.
	// Empty disables it.
	Accelerator     string   `yaml:"accelerator" envconfig:"XDL_ACCELERATOR"`
	AcceleratorArgs []string `yaml:"accelerator_args" envconfig:"XDL_ACCELERATOR_ARGS"`
}

// ArchiveConfig holds download archive configuration.
type ArchiveConfig struct {
	// Path to the SQLite archive. Empty disables the archive.
	Path string `yaml:"path" envconfig:"XDL_ARCHIVE"`
}

// LogConfig holds diagnostic logging configuration.
type LogConfig struct {
	Level   string `yaml:"level" envconfig:"XDL_LOG_LEVEL"`
	NoColor bool   `yaml:"no_color" envconfig:"XDL_NO_COLOR"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Download: DownloadConfig{
			CookiesPath:    "cookies.txt",
			OutputTemplate: "%(title)s.%(ext)s",
			OnCritical:     OnCriticalAbort,
		},
		Worker: WorkerConfig{
			Threads: 4,
		},
		Engine: EngineConfig{
			CookieFile:          "cookies.txt",
			Format:              "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best",
			ConcurrentFragments: 4,
			HTTPChunkSize:       "1048576",
			Retries:             3,
			FragmentRetries:     3,
			Accelerator:         "aria2c",
			AcceleratorArgs: []string{
				"-x 8", "-s 8", "-k 2M",
				"--allow-overwrite=true",
				"--auto-file-renaming=false",
			},
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Load reads configuration from file and environment variables on top of
// Defaults. Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Worker.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Worker.Threads)
	}
	if c.Download.OutputTemplate == "" {
		return fmt.Errorf("output template is required")
	}
	if c.Download.CookiesPath == "" {
		return fmt.Errorf("cookie file path is required")
	}
	switch c.Download.OnCritical {
	case OnCriticalAbort, OnCriticalContinue:
	default:
		return fmt.Errorf("on_critical must be %q or %q, got %q", OnCriticalAbort, OnCriticalContinue, c.Download.OnCritical)
	}
	if c.Engine.ConcurrentFragments < 1 {
		return fmt.Errorf("concurrent_fragments must be at least 1")
	}
	if c.Engine.Retries < 0 || c.Engine.FragmentRetries < 0 {
		return fmt.Errorf("retries cannot be negative")
	}
	if _, ok := parseLevel(c.Log.Level); !ok {
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

// CookiePathsDiverge reports whether the loader's cookie file differs from
// the file handed to the engine.
func (c *Config) CookiePathsDiverge() bool {
	return c.Download.CookiesPath != c.Engine.CookieFile
}

// SlogLevel returns the configured slog level, defaulting to warn.
func (c *LogConfig) SlogLevel() slog.Level {
	level, _ := parseLevel(c.Level)
	return level
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning", "":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelWarn, false
	}
}
