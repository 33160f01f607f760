// Package config provides configuration loading for the intelhub server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Provider ProviderConfig `yaml:"provider"`
	Search   SearchConfig   `yaml:"search"`
	Batch    BatchConfig    `yaml:"batch"`
	Ingest   IngestConfig   `yaml:"ingest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database and the keyword index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// ProviderConfig holds embedding provider settings. The API key is never
// written to config files; it comes from the OPENAI_API_KEY environment
// variable (a .env file is honored).
type ProviderConfig struct {
	// Kind selects the embedder: "openai" (default) or "mock" for offline
	// development.
	Kind           string `yaml:"kind"`
	APIKey         string `yaml:"-"`
	Endpoint       string `yaml:"endpoint"`
	Model          string `yaml:"model"`
	Dimensions     int    `yaml:"dimensions"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	// CacheSize bounds the query embedding LRU cache; 0 disables it.
	CacheSize int `yaml:"cache_size"`
}

// SearchConfig holds retrieval and fusion settings.
type SearchConfig struct {
	DefaultThreshold float64 `yaml:"default_threshold"`
	SemanticWeight   float64 `yaml:"semantic_weight"`
	KeywordWeight    float64 `yaml:"keyword_weight"`
	TopKCandidates   int     `yaml:"top_k_candidates"`
}

// BatchConfig paces batch embedding runs.
type BatchConfig struct {
	ItemDelayMs int `yaml:"item_delay_ms"`
	PageDelayMs int `yaml:"page_delay_ms"`
}

// IngestConfig holds drop-directory import settings.
type IngestConfig struct {
	DropDir string `yaml:"drop_dir"`
	Watch   bool   `yaml:"watch"`
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	finish(&cfg, filepath.Dir(path))
	return &cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	var cfg Config
	finish(&cfg, ".")
	return &cfg
}

func finish(cfg *Config, configDir string) {
	ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Ingest.DropDir = expandPath(cfg.Ingest.DropDir, configDir)
	if cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths stay relative to the working
// directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	return path
}
