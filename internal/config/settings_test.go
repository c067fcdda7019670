package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DIT_HOST", "DIT_USER_AGENT", "DIT_CONFIG", "DIT_DOWNLOAD_DIR", "DIT_MAX_PARALLEL",
		"DIT_FETCH_TIMEOUT", "DIT_PAGE_LIMIT", "DIT_ENABLE_VIDEO", "DIT_YTDLP_PATH",
		"DIT_HISTORY_DB", "DIT_LOG_LEVEL", "DIT_LOG_FORMAT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0, s.MaxParallel)
	assert.Equal(t, DefaultFetchTimeout, s.FetchTimeout)
	assert.False(t, s.EnableVideo)
	assert.Equal(t, DefaultYTDLPPath, s.GetYTDLPPath())
	assert.Equal(t, slog.LevelInfo, s.GetLogLevel())
	assert.Equal(t, LogFormatText, s.GetLogFormat())
	assert.NotEmpty(t, s.GetDownloadDirectory())
	assert.NotEmpty(t, s.GetSessionPath())
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DIT_MAX_PARALLEL", "4")
	t.Setenv("DIT_FETCH_TIMEOUT", "5s")
	t.Setenv("DIT_ENABLE_VIDEO", "true")
	t.Setenv("DIT_DOWNLOAD_DIR", "/srv/saved")
	t.Setenv("DIT_LOG_LEVEL", "DEBUG")
	t.Setenv("DIT_LOG_FORMAT", "json")
	t.Chdir(t.TempDir())

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, s.GetMaxParallelDownloads())
	assert.Equal(t, 5*time.Second, s.GetFetchTimeout())
	assert.True(t, s.EnableVideo)
	assert.Equal(t, "/srv/saved", s.GetDownloadDirectory())
	assert.Equal(t, slog.LevelDebug, s.GetLogLevel())
	assert.Equal(t, LogFormatJSON, s.GetLogFormat())
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	file := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(file, []byte("DIT_PAGE_LIMIT=3\nDIT_HOST=http://localhost:8080/\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("DIT_PAGE_LIMIT")
		os.Unsetenv("DIT_HOST")
	})

	s, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, 3, s.PageLimit)
	assert.Equal(t, "http://localhost:8080/", s.Host)
}

func TestLoad_MissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.Error(t, err)
}

func TestLoad_InvalidValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("DIT_MAX_PARALLEL", "lots")
	t.Chdir(t.TempDir())

	_, err := Load()
	assert.ErrorIs(t, err, ErrParsingConfig)
}

func TestSettings_Clamping(t *testing.T) {
	assert.Equal(t, 0, Settings{MaxParallel: -3}.GetMaxParallelDownloads())
	assert.Equal(t, MaxParallelLimit, Settings{MaxParallel: 1000}.GetMaxParallelDownloads())
	assert.Equal(t, time.Duration(0), Settings{FetchTimeout: -time.Second}.GetFetchTimeout())
}
