// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rigchat configuration.
type Config struct {
	Server     ServerConfig      `toml:"server"`
	Generation GenerationConfig  `toml:"generation"`
	Settings   SettingsConfig    `toml:"settings"`
	Ticks      TicksConfig       `toml:"ticks"`
	Paths      PathsConfig       `toml:"paths"`
	Archive    ArchiveConfig     `toml:"archive"`
	Prompts    map[string]string `toml:"prompts"`
}

// ServerConfig addresses the Ollama server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// GenerationConfig holds the initial selection and parameters.
type GenerationConfig struct {
	// Model is preselected when set
	Model string `toml:"model"`
	// SystemPrompt names a catalog entry; empty sends no system prompt
	SystemPrompt string `toml:"system_prompt"`
	// Temperature in [0, 2]
	Temperature float64 `toml:"temperature"`
	Think       bool    `toml:"think"`
	// Context prefixes prior turns to each prompt
	Context bool `toml:"context"`
}

// SettingsConfig holds the user toggles.
type SettingsConfig struct {
	Filtering bool `toml:"filtering"`
	Logging   bool `toml:"logging"`
	DarkMode  bool `toml:"dark_mode"`
	// Debug lowers the file log level to debug
	Debug bool `toml:"debug"`
}

// TicksConfig is the poll schedule. Probe ticks count periods of IntervalMS.
type TicksConfig struct {
	IntervalMS    int `toml:"interval_ms"`
	InventoryTick int `toml:"inventory_tick"`
	HealthTick    int `toml:"health_tick"`
	MaxTick       int `toml:"max_tick"`
}

// PathsConfig locates the files rigchat reads and writes.
type PathsConfig struct {
	HistoryFile string `toml:"history_file"`
	PromptsFile string `toml:"prompts_file"`
	LogFile     string `toml:"log_file"`
	ArchiveFile string `toml:"archive_file"`
}

// ArchiveConfig controls the SQLite interaction archive.
type ArchiveConfig struct {
	Enabled bool `toml:"enabled"`
}

// Interval returns the tick period.
func (t TicksConfig) Interval() time.Duration {
	return time.Duration(t.IntervalMS) * time.Millisecond
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	dir, err := ConfigDir()
	if err != nil {
		dir = "."
	}
	return &Config{
		Server: ServerConfig{
			// Explicit IPv4 avoids localhost resolving to ::1 first
			Host: "127.0.0.1",
			Port: 11434,
		},
		Generation: GenerationConfig{
			Temperature: 0.7,
		},
		Settings: SettingsConfig{
			Filtering: true,
			DarkMode:  true,
		},
		Ticks: TicksConfig{
			IntervalMS:    200,
			InventoryTick: 5,
			HealthTick:    25,
			MaxTick:       100,
		},
		Paths: PathsConfig{
			HistoryFile: filepath.Join(dir, "history.json"),
			PromptsFile: filepath.Join(dir, "prompts.json"),
			LogFile:     filepath.Join(dir, "rigchat.log"),
			ArchiveFile: filepath.Join(dir, "archive.db"),
		},
		Prompts: map[string]string{
			"default": "You are a helpful assistant.",
			"concise": "You are a helpful assistant. Answer in as few words as possible.",
			"coder":   "You are an expert programmer. Answer with working code and brief explanations.",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the rigchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rigchat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the config at path, or the default path when path is empty. A
// missing file yields the defaults. Environment overrides are applied after
// the file and before validation.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes path over cfg and fills any zero values from Default.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}
	fillDefaults(cfg)
	return nil
}

// fillDefaults restores zero-valued fields that have no meaningful zero.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Server.Host == "" {
		cfg.Server.Host = defaults.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}

	if cfg.Ticks.IntervalMS == 0 {
		cfg.Ticks.IntervalMS = defaults.Ticks.IntervalMS
	}
	if cfg.Ticks.InventoryTick == 0 {
		cfg.Ticks.InventoryTick = defaults.Ticks.InventoryTick
	}
	if cfg.Ticks.HealthTick == 0 {
		cfg.Ticks.HealthTick = defaults.Ticks.HealthTick
	}
	if cfg.Ticks.MaxTick == 0 {
		cfg.Ticks.MaxTick = defaults.Ticks.MaxTick
	}

	if cfg.Paths.HistoryFile == "" {
		cfg.Paths.HistoryFile = defaults.Paths.HistoryFile
	}
	if cfg.Paths.PromptsFile == "" {
		cfg.Paths.PromptsFile = defaults.Paths.PromptsFile
	}
	if cfg.Paths.LogFile == "" {
		cfg.Paths.LogFile = defaults.Paths.LogFile
	}
	if cfg.Paths.ArchiveFile == "" {
		cfg.Paths.ArchiveFile = defaults.Paths.ArchiveFile
	}

	if cfg.Prompts == nil {
		cfg.Prompts = defaults.Prompts
	}
}

// ApplyEnvOverrides applies RIGCHAT_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if host := os.Getenv("RIGCHAT_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("RIGCHAT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if model := os.Getenv("RIGCHAT_MODEL"); model != "" {
		c.Generation.Model = model
	}
	if v := os.Getenv("RIGCHAT_FILTERING"); v != "" {
		c.Settings.Filtering = parseBool(v)
	}
	if v := os.Getenv("RIGCHAT_LOGGING"); v != "" {
		c.Settings.Logging = parseBool(v)
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to path as TOML with owner-only permissions.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# rigchat configuration file")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port %d out of range 1-65535", c.Server.Port),
		})
	}
	if strings.ContainsAny(c.Server.Host, "/ ") {
		errs = append(errs, ValidationError{
			Field:   "server.host",
			Message: fmt.Sprintf("invalid host '%s', expected a hostname or IP", c.Server.Host),
		})
	}

	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "generation.temperature",
			Message: fmt.Sprintf("temperature %.2f out of range 0-2", c.Generation.Temperature),
		})
	}

	if c.Ticks.IntervalMS < 10 {
		errs = append(errs, ValidationError{
			Field:   "ticks.interval_ms",
			Message: fmt.Sprintf("interval %dms too short, minimum 10", c.Ticks.IntervalMS),
		})
	}
	for _, tick := range []struct {
		field string
		value int
	}{
		{"ticks.inventory_tick", c.Ticks.InventoryTick},
		{"ticks.health_tick", c.Ticks.HealthTick},
	} {
		if tick.value < 1 || tick.value > c.Ticks.MaxTick {
			errs = append(errs, ValidationError{
				Field:   tick.field,
				Message: fmt.Sprintf("tick %d must be between 1 and max_tick (%d)", tick.value, c.Ticks.MaxTick),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
