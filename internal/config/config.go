package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete strata configuration (v1 schema)
type Config struct {
	Version       int    `json:"version" mapstructure:"version"`
	WorkspaceRoot string `json:"workspaceRoot" mapstructure:"workspaceRoot"`

	Layers      LayersConfig      `json:"layers" mapstructure:"layers"`
	Search      SearchConfig      `json:"search" mapstructure:"search"`
	Cache       CacheConfig       `json:"cache" mapstructure:"cache"`
	Structural  StructuralConfig  `json:"structural" mapstructure:"structural"`
	Concepts    ConceptsConfig    `json:"concepts" mapstructure:"concepts"`
	Patterns    PatternsConfig    `json:"patterns" mapstructure:"patterns"`
	Propagation PropagationConfig `json:"propagation" mapstructure:"propagation"`
	Completion  CompletionConfig  `json:"completion" mapstructure:"completion"`
	Logging     LoggingConfig     `json:"logging" mapstructure:"logging"`
}

// LayersConfig controls which resolution layers run and for how long.
// Keys are the layer ids layer1..layer5.
type LayersConfig struct {
	Enabled    map[string]bool `json:"enabled" mapstructure:"enabled"`
	TimeoutMs  map[string]int  `json:"timeoutMs" mapstructure:"timeoutMs"`
	MaxResults int             `json:"maxResults" mapstructure:"maxResults"`
}

// SearchConfig contains fast-path search engine configuration
type SearchConfig struct {
	MaxWorkers           int      `json:"maxWorkers" mapstructure:"maxWorkers"`
	TimeoutMs            int      `json:"timeoutMs" mapstructure:"timeoutMs"`
	MaxMatches           int      `json:"maxMatches" mapstructure:"maxMatches"`
	FallbackMaxFiles     int      `json:"fallbackMaxFiles" mapstructure:"fallbackMaxFiles"`
	FallbackMaxFileBytes int      `json:"fallbackMaxFileBytes" mapstructure:"fallbackMaxFileBytes"`
	CacheTtlSeconds      int      `json:"cacheTtlSeconds" mapstructure:"cacheTtlSeconds"`
	CacheMaxEntries      int      `json:"cacheMaxEntries" mapstructure:"cacheMaxEntries"`
	Exclude              []string `json:"exclude" mapstructure:"exclude"`
}

// CacheConfig contains resolution cache configuration
type CacheConfig struct {
	MaxEntries             int    `json:"maxEntries" mapstructure:"maxEntries"`
	JanitorIntervalSeconds int    `json:"janitorIntervalSeconds" mapstructure:"janitorIntervalSeconds"`
	SnapshotPath           string `json:"snapshotPath" mapstructure:"snapshotPath"`
	SnapshotMaxAgeHours    int    `json:"snapshotMaxAgeHours" mapstructure:"snapshotMaxAgeHours"`
}

// StructuralConfig contains layer2 configuration
type StructuralConfig struct {
	IndexPath        string `json:"indexPath" mapstructure:"indexPath"`
	MaxFiles         int    `json:"maxFiles" mapstructure:"maxFiles"`
	MaxFileSizeBytes int    `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
}

// ConceptsConfig contains layer3 configuration
type ConceptsConfig struct {
	Path        string `json:"path" mapstructure:"path"`
	MaxVariants int    `json:"maxVariants" mapstructure:"maxVariants"`
}

// PatternsConfig contains layer4 configuration
type PatternsConfig struct {
	Learning bool   `json:"learning" mapstructure:"learning"`
	DBPath   string `json:"dbPath" mapstructure:"dbPath"`
	SeedPath string `json:"seedPath" mapstructure:"seedPath"`
}

// PropagationConfig contains layer5 configuration
type PropagationConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// CompletionConfig contains completion configuration
type CompletionConfig struct {
	Limit int `json:"limit" mapstructure:"limit"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// LayerIDs is the fixed invocation order of the resolution layers.
var LayerIDs = []string{"layer1", "layer2", "layer3", "layer4", "layer5"}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:       1,
		WorkspaceRoot: ".",
		Layers: LayersConfig{
			Enabled: map[string]bool{
				"layer1": true,
				"layer2": true,
				"layer3": true,
				"layer4": true,
				"layer5": true,
			},
			TimeoutMs: map[string]int{
				"layer1": 3000,
				"layer2": 5000,
				"layer3": 4000,
				"layer4": 2000,
				"layer5": 4000,
			},
			MaxResults: 50,
		},
		Search: SearchConfig{
			MaxWorkers:           4,
			TimeoutMs:            2000,
			MaxMatches:           1000,
			FallbackMaxFiles:     300,
			FallbackMaxFileBytes: 1 << 20,
			CacheTtlSeconds:      30,
			CacheMaxEntries:      256,
			Exclude: []string{
				".git", "node_modules", "vendor", "dist",
				"build", "target", "__pycache__", ".strata",
			},
		},
		Cache: CacheConfig{
			MaxEntries:             2048,
			JanitorIntervalSeconds: 60,
			SnapshotPath:           ".strata/cache.zst",
			SnapshotMaxAgeHours:    24,
		},
		Structural: StructuralConfig{
			IndexPath:        ".strata/index.scip",
			MaxFiles:         200,
			MaxFileSizeBytes: 1 << 20,
		},
		Concepts: ConceptsConfig{
			Path:        ".strata/concepts.yaml",
			MaxVariants: 8,
		},
		Patterns: PatternsConfig{
			Learning: true,
			DBPath:   ".strata/patterns.db",
			SeedPath: ".strata/patterns.toml",
		},
		Propagation: PropagationConfig{
			Enabled: true,
		},
		Completion: CompletionConfig{
			Limit: 20,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .strata/config.json under the
// workspace root, falling back to defaults when no file exists.
func LoadConfig(workspaceRoot string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("workspaceRoot", ".")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(workspaceRoot, ".strata"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := DefaultConfig()
			cfg.WorkspaceRoot = workspaceRoot
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.WorkspaceRoot == "" || cfg.WorkspaceRoot == "." {
		cfg.WorkspaceRoot = workspaceRoot
	}

	return cfg, nil
}

// Save writes the configuration to .strata/config.json
func (c *Config) Save(workspaceRoot string) error {
	dir := filepath.Join(workspaceRoot, ".strata")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Search.MaxWorkers < 1 || c.Search.MaxWorkers > 32 {
		return &ConfigError{Field: "search.maxWorkers", Message: "must be between 1 and 32"}
	}
	if c.Search.FallbackMaxFiles < 1 {
		return &ConfigError{Field: "search.fallbackMaxFiles", Message: "must be positive"}
	}
	if c.Layers.MaxResults < 1 {
		return &ConfigError{Field: "layers.maxResults", Message: "must be positive"}
	}
	if c.Completion.Limit < 1 {
		return &ConfigError{Field: "completion.limit", Message: "must be positive"}
	}
	for id, ms := range c.Layers.TimeoutMs {
		if ms <= 0 {
			return &ConfigError{Field: "layers.timeoutMs." + id, Message: "must be positive"}
		}
	}
	return nil
}

// LayerEnabled reports whether a layer id is administratively enabled.
// Layers missing from the map default to enabled.
func (c *Config) LayerEnabled(id string) bool {
	if c.Layers.Enabled == nil {
		return true
	}
	enabled, ok := c.Layers.Enabled[id]
	if !ok {
		return true
	}
	return enabled
}

// LayerTimeoutMs returns the configured timeout for a layer id, with a
// 5s default for layers missing from the map.
func (c *Config) LayerTimeoutMs(id string) int {
	if ms, ok := c.Layers.TimeoutMs[id]; ok && ms > 0 {
		return ms
	}
	return 5000
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
