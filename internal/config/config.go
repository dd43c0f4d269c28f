// Package config loads the four configuration knobs spec §6 recognizes:
// embedder selection, chunker selection, the vector-store persist path, and
// log level. Everything else (search-weight tuning, daemon/session/server
// config) belonged to the teacher's CLI dispatcher, which is out of scope
// here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EmbedderKind selects the embedding backend (spec §6).
type EmbedderKind string

const (
	EmbedderNoop         EmbedderKind = "noop"
	EmbedderOllama       EmbedderKind = "ollama"
	EmbedderTransformers EmbedderKind = "transformers"
)

// ChunkerKind selects the chunking strategy (spec §6).
type ChunkerKind string

const (
	ChunkerAST  ChunkerKind = "ast"
	ChunkerText ChunkerKind = "text"
)

// EmbedderConfig configures embedder selection.
type EmbedderConfig struct {
	Kind    EmbedderKind `yaml:"kind"`
	BaseURL string       `yaml:"base_url"`
	Model   string       `yaml:"model"`
}

// Config is the complete configuration recognized by the core.
type Config struct {
	Embedder    EmbedderConfig `yaml:"embedder"`
	Chunker     ChunkerKind    `yaml:"chunker"`
	PersistPath string         `yaml:"persist_path"`
	LogLevel    string         `yaml:"log_level"`
}

// defaultPersistPath returns "{home}/.holocron/index.db" (spec §6).
func defaultPersistPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".holocron", "index.db")
	}
	return filepath.Join(home, ".holocron", "index.db")
}

// NewConfig returns the hardcoded defaults.
func NewConfig() *Config {
	return &Config{
		Embedder: EmbedderConfig{
			Kind: EmbedderNoop,
		},
		Chunker:     ChunkerAST,
		PersistPath: defaultPersistPath(),
		LogLevel:    "info",
	}
}

// Load builds a Config from defaults, an optional `.holocron.yaml` in dir,
// then HOLOCRON_* environment overrides, in that order of precedence.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".holocron.yaml", ".holocron.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return c.loadYAML(path)
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

func (c *Config) mergeWith(other *Config) {
	if other.Embedder.Kind != "" {
		c.Embedder.Kind = other.Embedder.Kind
	}
	if other.Embedder.BaseURL != "" {
		c.Embedder.BaseURL = other.Embedder.BaseURL
	}
	if other.Embedder.Model != "" {
		c.Embedder.Model = other.Embedder.Model
	}
	if other.Chunker != "" {
		c.Chunker = other.Chunker
	}
	if other.PersistPath != "" {
		c.PersistPath = other.PersistPath
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// applyEnvOverrides applies HOLOCRON_* environment variable overrides,
// the highest-precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("HOLOCRON_EMBEDDER"); v != "" {
		c.Embedder.Kind = EmbedderKind(v)
	}
	if v := os.Getenv("HOLOCRON_EMBEDDER_BASE_URL"); v != "" {
		c.Embedder.BaseURL = v
	}
	if v := os.Getenv("HOLOCRON_EMBEDDER_MODEL"); v != "" {
		c.Embedder.Model = v
	}
	if v := os.Getenv("HOLOCRON_CHUNKER"); v != "" {
		c.Chunker = ChunkerKind(v)
	}
	if v := os.Getenv("HOLOCRON_PERSIST_PATH"); v != "" {
		c.PersistPath = v
	}
	if v := os.Getenv("HOLOCRON_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate rejects unrecognized enum values before the engine starts.
func (c *Config) Validate() error {
	validEmbedders := map[EmbedderKind]bool{EmbedderNoop: true, EmbedderOllama: true, EmbedderTransformers: true}
	if !validEmbedders[c.Embedder.Kind] {
		return fmt.Errorf("embedder.kind must be noop, ollama, or transformers, got %q", c.Embedder.Kind)
	}

	validChunkers := map[ChunkerKind]bool{ChunkerAST: true, ChunkerText: true}
	if !validChunkers[c.Chunker] {
		return fmt.Errorf("chunker must be ast or text, got %q", c.Chunker)
	}

	if c.PersistPath == "" {
		return fmt.Errorf("persist_path must not be empty")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
