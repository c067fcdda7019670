package config

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/ytget/dit/internal/platform"
)

// Log formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Default values
const (
	DefaultFetchTimeout = 60 * time.Second
	DefaultYTDLPPath    = "yt-dlp"
	MaxParallelLimit    = 64
)

// Settings is the environment-driven configuration. Command line flags
// override individual fields after loading.
type Settings struct {
	Host         string        `env:"DIT_HOST"`
	UserAgent    string        `env:"DIT_USER_AGENT"`
	SessionPath  string        `env:"DIT_CONFIG"`
	DownloadDir  string        `env:"DIT_DOWNLOAD_DIR"`
	MaxParallel  int           `env:"DIT_MAX_PARALLEL" envDefault:"0"`
	FetchTimeout time.Duration `env:"DIT_FETCH_TIMEOUT" envDefault:"60s"`
	PageLimit    int           `env:"DIT_PAGE_LIMIT" envDefault:"0"`
	EnableVideo  bool          `env:"DIT_ENABLE_VIDEO" envDefault:"false"`
	YTDLPPath    string        `env:"DIT_YTDLP_PATH" envDefault:"yt-dlp"`
	HistoryDB    string        `env:"DIT_HISTORY_DB"`
	LogLevel     string        `env:"DIT_LOG_LEVEL" envDefault:"info"`
	LogFormat    string        `env:"DIT_LOG_FORMAT" envDefault:"text"`
}

// Load reads .env files (the working directory's .env when none are given,
// which may be absent) and parses the environment into Settings.
func Load(envFiles ...string) (Settings, error) {
	if len(envFiles) == 0 {
		// Ignore errors - the .env file might not exist and that's ok
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, errors.Join(ErrParsingConfig, err)
	}
	return s, nil
}

// GetDownloadDirectory returns the configured download directory
func (s Settings) GetDownloadDirectory() string {
	if s.DownloadDir == "" {
		return platform.DefaultDownloadDir()
	}
	return s.DownloadDir
}

// GetSessionPath returns the session dotfile path
func (s Settings) GetSessionPath() string {
	if s.SessionPath == "" {
		return platform.DefaultSessionPath()
	}
	return s.SessionPath
}

// GetMaxParallelDownloads returns the fetch concurrency cap, 0 meaning unbounded
func (s Settings) GetMaxParallelDownloads() int {
	if s.MaxParallel < 0 {
		return 0
	}
	if s.MaxParallel > MaxParallelLimit {
		return MaxParallelLimit
	}
	return s.MaxParallel
}

// GetFetchTimeout returns the per-target timeout, 0 meaning none
func (s Settings) GetFetchTimeout() time.Duration {
	if s.FetchTimeout < 0 {
		return 0
	}
	return s.FetchTimeout
}

// GetYTDLPPath returns the yt-dlp executable
func (s Settings) GetYTDLPPath() string {
	if s.YTDLPPath == "" {
		return DefaultYTDLPPath
	}
	return s.YTDLPPath
}

// GetLogLevel maps LogLevel to a slog level; unknown values mean info
func (s Settings) GetLogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(s.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetLogFormat returns LogFormatJSON or LogFormatText
func (s Settings) GetLogFormat() string {
	if strings.EqualFold(s.LogFormat, LogFormatJSON) {
		return LogFormatJSON
	}
	return LogFormatText
}
