// Package config loads the editor client's TOML settings.
//
// The file is optional. Load("") reads ~/.config/docsync/client.toml and
// falls back to defaults when it does not exist. Every field is optional:
//
//	server_url      = "http://127.0.0.1:8080"
//	username        = "alice"
//	document        = "main"
//	poll_interval   = "2s"
//	quiet_period    = "1s"
//	request_timeout = "0s"   # 0 waits forever
//	log_file        = "~/.local/state/docsync/client.log"
//	log_level       = "info"
//
// Durations use time.ParseDuration syntax.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultConfigPath   = "~/.config/docsync/client.toml"
	defaultServerURL    = "http://127.0.0.1:8080"
	defaultDocument     = "main"
	defaultPollInterval = 2 * time.Second
	defaultQuietPeriod  = time.Second
	defaultLogFile      = "~/.local/state/docsync/client.log"
	defaultLogLevel     = "info"
)

type Config struct {
	ServerURL      string
	Username       string
	Document       string
	PollInterval   time.Duration
	QuietPeriod    time.Duration
	RequestTimeout time.Duration
	LogFile        string
	LogLevel       string
}

// Default returns the settings used when no file exists.
func Default() Config {
	return Config{
		ServerURL:    defaultServerURL,
		Document:     defaultDocument,
		PollInterval: defaultPollInterval,
		QuietPeriod:  defaultQuietPeriod,
		LogFile:      mustExpand(defaultLogFile),
		LogLevel:     defaultLogLevel,
	}
}

// Load locates and parses the client config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		ServerURL      string `toml:"server_url"`
		Username       string `toml:"username"`
		Document       string `toml:"document"`
		PollInterval   string `toml:"poll_interval"`
		QuietPeriod    string `toml:"quiet_period"`
		RequestTimeout string `toml:"request_timeout"`
		LogFile        string `toml:"log_file"`
		LogLevel       string `toml:"log_level"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.ServerURL); v != "" {
		cfg.ServerURL = v
	}
	if v := strings.TrimSpace(raw.Username); v != "" {
		cfg.Username = v
	}
	if v := strings.TrimSpace(raw.Document); v != "" {
		cfg.Document = v
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"poll_interval", raw.PollInterval, &cfg.PollInterval},
		{"quiet_period", raw.QuietPeriod, &cfg.QuietPeriod},
		{"request_timeout", raw.RequestTimeout, &cfg.RequestTimeout},
	}
	for _, d := range durations {
		v := strings.TrimSpace(d.raw)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed < 0 {
			return Config{}, fmt.Errorf("parse config: %s: invalid duration %q", d.name, v)
		}
		*d.dst = parsed
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.QuietPeriod == 0 {
		cfg.QuietPeriod = defaultQuietPeriod
	}

	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
