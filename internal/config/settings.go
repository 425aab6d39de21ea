package config

import (
	"errors"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultBackendAddress = "127.0.0.1:8000"
	defaultTransport      = TransportSSE
	defaultPollInterval   = 2 * time.Second
	defaultSessionTTL     = 30 * time.Minute
	defaultMaxUploadMB    = 20
)

const (
	TransportSSE  = "sse"
	TransportPoll = "poll"
)

type Config struct {
	Backend   BackendConfig   `toml:"backend"`
	Transport TransportConfig `toml:"transport"`
	Upload    UploadConfig    `toml:"upload"`
	Sessions  SessionsConfig  `toml:"sessions"`
	Logging   LoggingConfig   `toml:"logging"`
	Voice     VoiceConfig     `toml:"voice"`
	Storage   StorageConfig   `toml:"storage"`
}

type BackendConfig struct {
	Address string `toml:"address"`
}

type TransportConfig struct {
	Mode                string `toml:"mode"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
}

type UploadConfig struct {
	MaxFileSizeMB int `toml:"max_file_size_mb"`
}

type SessionsConfig struct {
	TTLMinutes int `toml:"ttl_minutes"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type VoiceConfig struct {
	Enabled bool   `toml:"enabled"`
	Model   string `toml:"model"`
}

type StorageConfig struct {
	Backend string `toml:"backend"`
}

func Default() Config {
	return Config{
		Backend: BackendConfig{Address: defaultBackendAddress},
		Transport: TransportConfig{
			Mode: defaultTransport,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return loadFromPath(path)
}

func loadFromPath(path string) (Config, error) {
	cfg := Default()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) BackendAddress() string {
	addr := strings.TrimSpace(c.Backend.Address)
	if addr == "" {
		return defaultBackendAddress
	}
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	addr = strings.TrimRight(addr, "/")
	if addr == "" {
		return defaultBackendAddress
	}
	return addr
}

func (c Config) BackendBaseURL() string {
	return "http://" + c.BackendAddress()
}

func (c Config) TransportMode() string {
	switch strings.ToLower(strings.TrimSpace(c.Transport.Mode)) {
	case TransportPoll:
		return TransportPoll
	default:
		return TransportSSE
	}
}

func (c Config) PollInterval() time.Duration {
	if c.Transport.PollIntervalSeconds <= 0 {
		return defaultPollInterval
	}
	return time.Duration(c.Transport.PollIntervalSeconds) * time.Second
}

func (c Config) SessionTTL() time.Duration {
	if c.Sessions.TTLMinutes <= 0 {
		return defaultSessionTTL
	}
	return time.Duration(c.Sessions.TTLMinutes) * time.Minute
}

func (c Config) MaxUploadBytes() int64 {
	mb := c.Upload.MaxFileSizeMB
	if mb <= 0 {
		mb = defaultMaxUploadMB
	}
	return int64(mb) * 1024 * 1024
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c Config) VoiceModel() string {
	model := strings.TrimSpace(c.Voice.Model)
	if model == "" {
		return "aura-asteria-en"
	}
	return model
}

func (c Config) StorageBackend() string {
	return strings.ToLower(strings.TrimSpace(c.Storage.Backend))
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}
