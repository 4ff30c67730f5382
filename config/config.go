package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"go-lyre/debug"
	"go-lyre/keymap"
	"go-lyre/output"
	"go-lyre/player"
	"go-lyre/timeline"
)

// Environment overrides
const (
	EnvConfigDir = "LYRE_CONFIG_DIR"
	EnvLogLevel  = "LYRE_LOG_LEVEL"
	EnvLogPath   = "LYRE_LOG_PATH"
)

// MaxHistory is how many recent files are remembered
const MaxHistory = 20

// Keysmash modes
const (
	SmashSequential = "sequential"
	SmashRandom     = "random"
	SmashChord      = "chord"
)

// Keysmash rate limits in keys per second
const (
	MinSmashRate = 1
	MaxSmashRate = 50
)

// KeysmashConfig stores the key smasher settings
type KeysmashConfig struct {
	Keys []int  `json:"keys,omitempty"` // base-table indices 0-20
	Rate int    `json:"rate,omitempty"`
	Mode string `json:"mode,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Layout           keymap.Layout  `json:"layout"`
	Transpose        int            `json:"transpose"`
	Speed            float64        `json:"speed"`
	MergeNearby      bool           `json:"mergeNearby"`
	MergeThresholdMs float64        `json:"mergeThresholdMs"`
	TempoScope       string         `json:"tempoScope,omitempty"`
	Output           output.Config  `json:"output"`
	Keysmash         KeysmashConfig `json:"keysmash"`
	Palette          string         `json:"palette,omitempty"` // path to a .gpl file
	Log              debug.Config   `json:"log"`
	History          []string       `json:"history,omitempty"`
	LastDirectory    string         `json:"lastDirectory,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	keys := make([]int, keymap.NumKeys)
	for i := range keys {
		keys[i] = i
	}
	return &Config{
		Layout:           keymap.QWERTY,
		Speed:            1.0,
		MergeThresholdMs: timeline.DefaultMergeThresholdMs,
		TempoScope:       "global",
		Output:           output.Config{Kind: output.KindXdotool},
		Keysmash: KeysmashConfig{
			Keys: keys,
			Rate: 10,
			Mode: SmashSequential,
		},
		Log: debug.Config{
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-lyre"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads .env, then the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	// A missing .env is normal
	_ = godotenv.Load()

	path, err := ConfigPath()
	if err != nil {
		cfg := DefaultConfig()
		cfg.applyEnv()
		return cfg, nil
	}
	return LoadFrom(path)
}

// LoadFrom reads a specific config file. Missing keys keep their defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			cfg.Normalize()
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogPath); v != "" {
		c.Log.Path = v
	}
}

// Normalize clamps values into their valid ranges
func (c *Config) Normalize() {
	if l, err := keymap.ParseLayout(string(c.Layout)); err == nil {
		c.Layout = l
	} else {
		c.Layout = keymap.QWERTY
	}
	c.Transpose = keymap.ClampTranspose(c.Transpose)
	c.Speed = player.ClampSpeed(c.Speed)

	if c.MergeThresholdMs <= 0 {
		c.MergeThresholdMs = timeline.DefaultMergeThresholdMs
	}
	if _, err := timeline.ParseTempoScope(c.TempoScope); err != nil {
		c.TempoScope = "global"
	}

	k := &c.Keysmash
	if k.Rate < MinSmashRate {
		k.Rate = MinSmashRate
	}
	if k.Rate > MaxSmashRate {
		k.Rate = MaxSmashRate
	}
	switch k.Mode {
	case SmashSequential, SmashRandom, SmashChord:
	default:
		k.Mode = SmashSequential
	}
	valid := k.Keys[:0]
	for _, i := range k.Keys {
		if i >= 0 && i < keymap.NumKeys {
			valid = append(valid, i)
		}
	}
	k.Keys = valid

	if len(c.History) > MaxHistory {
		c.History = c.History[:MaxHistory]
	}
}

// Merge returns the merge policy the settings describe
func (c *Config) Merge() timeline.MergePolicy {
	return timeline.MergePolicy{Enabled: c.MergeNearby, ThresholdMs: c.MergeThresholdMs}
}

// BuildOptions returns the timeline build options
func (c *Config) BuildOptions() timeline.BuildOptions {
	scope, _ := timeline.ParseTempoScope(c.TempoScope)
	return timeline.BuildOptions{Tempo: scope}
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// AddToHistory moves path to the front of the recent files list
func (c *Config) AddToHistory(path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		return
	}
	out := []string{path}
	for _, p := range c.History {
		if p != path {
			out = append(out, p)
		}
	}
	if len(out) > MaxHistory {
		out = out[:MaxHistory]
	}
	c.History = out
	c.LastDirectory = filepath.Dir(path)
}
