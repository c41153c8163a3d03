package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type SourceType string

const (
	SourceWebcam SourceType = "Web-Camera"
	SourceLocal  SourceType = "Local"
	SourceOpenCV SourceType = "OpenCV"

	DefaultBackendURL  string = "http://localhost:8000"
	DefaultIntervalMs  uint   = 1000
	DefaultJPEGQuality int    = 80
	DefaultMonitorAddr string = "127.0.0.1:8090"
	DefaultRecordDir   string = "recordings"

	// ConfigDirEnv overrides the directory holding config.json.
	ConfigDirEnv = "LIVEVISION_CONFIG_DIR"

	xdgConfigHomeEnv = "XDG_CONFIG_HOME"
	appName          = "livevision"
	configFileName   = "config.json"
)

var SourcesList = [...]string{
	string(SourceWebcam),
	string(SourceLocal),
	string(SourceOpenCV),
}

type LocalConfig struct {
	Path string `json:"path"`
}

type WebcamConfig struct {
	DeviceID string `json:"device_id"`
}

type Config struct {
	mu sync.RWMutex

	BackendURL   string     `json:"backend_url"`
	ActiveSource SourceType `json:"active_source"`
	IntervalMs   uint       `json:"interval_ms"`
	ScaledWidth  int        `json:"scaled_width"`
	ScaledHeight int        `json:"scaled_height"`
	JPEGQuality  int        `json:"jpeg_quality"`
	TimeoutMs    uint       `json:"timeout_ms"`

	MonitorAddr  string `json:"monitor_addr,omitempty"`
	RecordingDir string `json:"recording_dir,omitempty"`

	Local  LocalConfig  `json:"local"`
	Webcam WebcamConfig `json:"webcam"`
}

func (c *Config) GetBackendURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.BackendURL
}

func (c *Config) SetBackendURL(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.BackendURL = url
}

func (c *Config) GetSource() SourceType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ActiveSource
}

func (c *Config) SetSource(s SourceType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ActiveSource = s
}

func (c *Config) GetInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.IntervalMs == 0 {
		return time.Duration(DefaultIntervalMs) * time.Millisecond
	}
	return time.Duration(c.IntervalMs) * time.Millisecond
}

func (c *Config) SetIntervalMs(ms uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.IntervalMs = ms
}

func (c *Config) GetWidth() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ScaledWidth
}

func (c *Config) SetWidth(width int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ScaledWidth = width
}

func (c *Config) GetHeight() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ScaledHeight
}

func (c *Config) SetHeight(height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ScaledHeight = height
}

func (c *Config) GetJPEGQuality() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		return DefaultJPEGQuality
	}
	return c.JPEGQuality
}

func (c *Config) GetTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c *Config) GetMonitorAddr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.MonitorAddr == "" {
		return DefaultMonitorAddr
	}
	return c.MonitorAddr
}

func (c *Config) GetRecordingDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.RecordingDir == "" {
		return DefaultRecordDir
	}
	return c.RecordingDir
}

func (c *Config) GetDeviceID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Webcam.DeviceID
}

func (c *Config) SetDeviceID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Webcam.DeviceID = id
}

func (c *Config) GetLocalPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Local.Path
}

func (c *Config) SetLocalPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Local.Path = path
}

// Save writes the config as JSON, creating the parent directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	c.mu.RLock()
	defer c.mu.RUnlock()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// LoadConfigFile never fails: a missing or unreadable file yields defaults.
func LoadConfigFile(path string) *Config {
	var cfg *Config = NewDefaultConfig()

	if _, err := os.Stat(path); err == nil {
		f, err := os.Open(path)

		if err != nil {
			return cfg
		}
		defer f.Close()

		dec := json.NewDecoder(f)
		err = dec.Decode(cfg)

		if err != nil {
			return NewDefaultConfig()
		}
	}

	return cfg
}

func NewDefaultConfig() *Config {
	return &Config{
		BackendURL:   DefaultBackendURL,
		ActiveSource: SourceWebcam,
		IntervalMs:   DefaultIntervalMs,
		ScaledWidth:  640,
		ScaledHeight: 480,
		JPEGQuality:  DefaultJPEGQuality,
		TimeoutMs:    10000,
		Local:        LocalConfig{Path: ""},
		Webcam:       WebcamConfig{DeviceID: "/dev/video0"},
	}
}

// DefaultPath resolves config.json in this order:
//  1. LIVEVISION_CONFIG_DIR
//  2. XDG_CONFIG_HOME/livevision
//  3. os.UserConfigDir()/livevision
func DefaultPath() (string, error) {
	if override := strings.TrimSpace(os.Getenv(ConfigDirEnv)); override != "" {
		return filepath.Join(override, configFileName), nil
	}

	if xdg := strings.TrimSpace(os.Getenv(xdgConfigHomeEnv)); xdg != "" {
		return filepath.Join(xdg, appName, configFileName), nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user config directory: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}
