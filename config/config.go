// Package config loads the configuration of the document engine tools from
// TOML or YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/cozy/docengine/logger"
	"github.com/cozy/docengine/postponed"
	"github.com/cozy/docengine/schema/basic"
	"github.com/cozy/docengine/transform"
	"github.com/cozy/docengine/undo"
)

// Config holds the combined configuration.
type Config struct {
	Logger    logger.Config   `toml:"logger" yaml:"logger"`
	Undo      UndoConfig      `toml:"undo" yaml:"undo"`
	Postponed PostponedConfig `toml:"postponed" yaml:"postponed"`
	Hierarchy HierarchyConfig `toml:"hierarchy" yaml:"hierarchy"`
	Grammar   basic.Spec      `toml:"grammar" yaml:"grammar"`
}

// UndoConfig holds the settings of the undo log.
type UndoConfig struct {
	Limit int `toml:"limit" yaml:"limit"`
}

// PostponedConfig holds the settings of the postponed queue.
type PostponedConfig struct {
	MaxRounds int `toml:"max_rounds" yaml:"max_rounds"`
}

// HierarchyConfig holds the settings of the repair engine.
type HierarchyConfig struct {
	MaxAscents int `toml:"max_ascents" yaml:"max_ascents"`
}

// ErrUnknownKeys is returned when a file holds keys that no setting reads.
var ErrUnknownKeys = errors.New("config: unknown keys")

// NewDefault returns the default configuration.
func NewDefault() *Config {
	return &Config{
		Logger:    logger.NewConfig(),
		Undo:      UndoConfig{Limit: undo.DefaultLimit},
		Postponed: PostponedConfig{MaxRounds: postponed.DefaultMaxRounds},
		Hierarchy: HierarchyConfig{MaxAscents: transform.DefaultMaxAscents},
		Grammar:   basic.DefaultSpec(),
	}
}

// Load reads the file at path over the defaults. The format is chosen from
// the extension: .yaml and .yml are YAML, anything else is TOML. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := NewDefault()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file '%s': %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = cfg.decodeYAML(data)
	default:
		err = cfg.decodeTOML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config file '%s': %w", path, err)
	}
	cfg.validate()
	return cfg, nil
}

func (c *Config) decodeTOML(data []byte) error {
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("%w: %s", ErrUnknownKeys, strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) decodeYAML(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		if strings.Contains(err.Error(), "not found in type") {
			return fmt.Errorf("%w: %v", ErrUnknownKeys, err)
		}
		return err
	}
	return nil
}

// validate resets invalid values to their defaults.
func (c *Config) validate() {
	defaults := NewDefault()
	if _, err := logger.ParseLevel(c.Logger.Level); err != nil {
		c.Logger.Level = defaults.Logger.Level
	}
	if c.Logger.Encoding != "console" && c.Logger.Encoding != "json" {
		c.Logger.Encoding = defaults.Logger.Encoding
	}
	if c.Undo.Limit <= 0 {
		c.Undo.Limit = defaults.Undo.Limit
	}
	if c.Postponed.MaxRounds <= 0 {
		c.Postponed.MaxRounds = defaults.Postponed.MaxRounds
	}
	if c.Hierarchy.MaxAscents <= 0 {
		c.Hierarchy.MaxAscents = defaults.Hierarchy.MaxAscents
	}
	if c.Grammar.ParagraphName == "" {
		c.Grammar.ParagraphName = defaults.Grammar.ParagraphName
	}
	if len(c.Grammar.Containers) == 0 {
		c.Grammar.Containers = defaults.Grammar.Containers
	}
}

// SessionOptions returns the options of a session configured by c.
func (c *Config) SessionOptions() []transform.SessionOption {
	return []transform.SessionOption{
		transform.WithUndoLimit(c.Undo.Limit),
		transform.WithMaxRounds(c.Postponed.MaxRounds),
		transform.WithRepairLimit(c.Hierarchy.MaxAscents),
	}
}
