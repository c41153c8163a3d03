package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFileMissingReturnsDefaults(t *testing.T) {
	cfg := LoadConfigFile(filepath.Join(t.TempDir(), "nope.json"))

	assert.Equal(t, DefaultBackendURL, cfg.GetBackendURL())
	assert.Equal(t, time.Second, cfg.GetInterval())
	assert.Equal(t, 640, cfg.GetWidth())
	assert.Equal(t, 480, cfg.GetHeight())
	assert.Equal(t, SourceWebcam, cfg.GetSource())
}

func TestLoadConfigFileCorruptReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	cfg := LoadConfigFile(path)
	assert.Equal(t, DefaultBackendURL, cfg.GetBackendURL())
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := NewDefaultConfig()
	cfg.SetBackendURL("http://10.0.0.5:8000")
	cfg.SetIntervalMs(350)
	cfg.SetSource(SourceLocal)
	cfg.SetLocalPath("/tmp/clip.mp4")
	require.NoError(t, cfg.Save(path))

	loaded := LoadConfigFile(path)
	assert.Equal(t, "http://10.0.0.5:8000", loaded.GetBackendURL())
	assert.Equal(t, 350*time.Millisecond, loaded.GetInterval())
	assert.Equal(t, SourceLocal, loaded.GetSource())
	assert.Equal(t, "/tmp/clip.mp4", loaded.GetLocalPath())
}

func TestGetJPEGQualityClamps(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.JPEGQuality = 0
	assert.Equal(t, DefaultJPEGQuality, cfg.GetJPEGQuality())
	cfg.JPEGQuality = 101
	assert.Equal(t, DefaultJPEGQuality, cfg.GetJPEGQuality())
	cfg.JPEGQuality = 55
	assert.Equal(t, 55, cfg.GetJPEGQuality())
}

func TestDefaultPathEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(ConfigDirEnv, dir)

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.json"), path)
}

func TestDefaultPathXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(ConfigDirEnv, "")
	t.Setenv("XDG_CONFIG_HOME", dir)

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "livevision", "config.json"), path)
}

func TestMonitorAndRecordingDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, DefaultMonitorAddr, cfg.GetMonitorAddr())
	assert.Equal(t, DefaultRecordDir, cfg.GetRecordingDir())

	cfg.MonitorAddr = ":9999"
	cfg.RecordingDir = "/var/lib/livevision"
	assert.Equal(t, ":9999", cfg.GetMonitorAddr())
	assert.Equal(t, "/var/lib/livevision", cfg.GetRecordingDir())
}
