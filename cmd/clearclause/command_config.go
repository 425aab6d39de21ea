package main

import (
	"encoding/json"
	"errors"
	"flag"
	"io"
	"strings"

	"github.com/projects-hacks/clear-clause/internal/config"

	toml "github.com/pelletier/go-toml/v2"
)

type ConfigCommand struct {
	stdout io.Writer
	stderr io.Writer
}

const (
	configFormatJSON = "json"
	configFormatTOML = "toml"
)

type configOutput struct {
	ConfigPath string                   `json:"config_path" toml:"config_path"`
	Backend    effectiveBackendConfig   `json:"backend" toml:"backend"`
	Transport  effectiveTransportConfig `json:"transport" toml:"transport"`
	Upload     effectiveUploadConfig    `json:"upload" toml:"upload"`
	Sessions   effectiveSessionsConfig  `json:"sessions" toml:"sessions"`
	Logging    effectiveLoggingConfig   `json:"logging" toml:"logging"`
	Voice      effectiveVoiceConfig     `json:"voice" toml:"voice"`
	Storage    effectiveStorageConfig   `json:"storage" toml:"storage"`
}

type effectiveBackendConfig struct {
	Address string `json:"address" toml:"address"`
	BaseURL string `json:"base_url" toml:"base_url"`
}

type effectiveTransportConfig struct {
	Mode                string `json:"mode" toml:"mode"`
	PollIntervalSeconds int    `json:"poll_interval_seconds" toml:"poll_interval_seconds"`
}

type effectiveUploadConfig struct {
	MaxFileSizeMB int64 `json:"max_file_size_mb" toml:"max_file_size_mb"`
}

type effectiveSessionsConfig struct {
	TTLMinutes int `json:"ttl_minutes" toml:"ttl_minutes"`
}

type effectiveLoggingConfig struct {
	Level string `json:"level" toml:"level"`
}

type effectiveVoiceConfig struct {
	Enabled bool   `json:"enabled" toml:"enabled"`
	Model   string `json:"model" toml:"model"`
}

type effectiveStorageConfig struct {
	Backend string `json:"backend" toml:"backend"`
}

func NewConfigCommand(stdout, stderr io.Writer) *ConfigCommand {
	return &ConfigCommand{
		stdout: stdout,
		stderr: stderr,
	}
}

func (c *ConfigCommand) Run(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	defaults := fs.Bool("default", false, "print default config values")
	format := fs.String("format", configFormatJSON, "output format: json|toml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolvedFormat, err := resolveConfigFormat(*format)
	if err != nil {
		return err
	}
	payload, err := buildConfigOutput(*defaults)
	if err != nil {
		return err
	}
	return writeConfigOutput(c.stdout, resolvedFormat, payload)
}

func buildConfigOutput(defaults bool) (configOutput, error) {
	path, err := config.ConfigPath()
	if err != nil {
		return configOutput{}, err
	}
	cfg := config.Default()
	if !defaults {
		cfg, err = config.Load()
		if err != nil {
			return configOutput{}, err
		}
	}
	return configOutput{
		ConfigPath: path,
		Backend: effectiveBackendConfig{
			Address: cfg.BackendAddress(),
			BaseURL: cfg.BackendBaseURL(),
		},
		Transport: effectiveTransportConfig{
			Mode:                cfg.TransportMode(),
			PollIntervalSeconds: int(cfg.PollInterval().Seconds()),
		},
		Upload: effectiveUploadConfig{
			MaxFileSizeMB: cfg.MaxUploadBytes() / (1024 * 1024),
		},
		Sessions: effectiveSessionsConfig{
			TTLMinutes: int(cfg.SessionTTL().Minutes()),
		},
		Logging: effectiveLoggingConfig{
			Level: cfg.LogLevel(),
		},
		Voice: effectiveVoiceConfig{
			Enabled: cfg.Voice.Enabled,
			Model:   cfg.VoiceModel(),
		},
		Storage: effectiveStorageConfig{
			Backend: cfg.StorageBackend(),
		},
	}, nil
}

func writeConfigOutput(out io.Writer, format string, payload any) error {
	switch format {
	case configFormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	case configFormatTOML:
		data, err := toml.Marshal(payload)
		if err != nil {
			return err
		}
		if len(data) == 0 || data[len(data)-1] != '\n' {
			data = append(data, '\n')
		}
		_, err = out.Write(data)
		return err
	default:
		return errors.New("unsupported format")
	}
}

func resolveConfigFormat(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", configFormatJSON:
		return configFormatJSON, nil
	case configFormatTOML:
		return configFormatTOML, nil
	default:
		return "", errors.New("invalid format: must be json or toml")
	}
}
