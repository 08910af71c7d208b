package config

import (
	"encoding/json"
	"os"

	"archivekit/pkg/env"
	"archivekit/pkg/logger"
)

// StrategyRule is a single ordered predicate in the strategy ruleset:
// {extension_set?, min_size?, max_size?} -> (algorithm, level).
type StrategyRule struct {
	Extensions []string `json:"extensions,omitempty"`
	MinSize    int64    `json:"min_size,omitempty"`
	MaxSize    int64    `json:"max_size,omitempty"` // 0 means unbounded
	Algorithm  string   `json:"algorithm"`
	Level      int      `json:"level"`
}

// SizeRule is a size-only variant of StrategyRule, evaluated after the
// extension-keyed rules and before the default rule.
type SizeRule struct {
	MinSize   int64  `json:"min_size"`
	MaxSize   int64  `json:"max_size,omitempty"`
	Algorithm string `json:"algorithm"`
	Level     int    `json:"level"`
}

// Config holds archivekit's configuration: the strategy ruleset plus
// the ambient knobs for conflict resolution, bomb-guard limits, and
// logging level. Matches spec.md §6's external configuration record.
type Config struct {
	DefaultLevel       string         `json:"default_level"`
	MinFileSize        int64          `json:"min_file_size"`
	Threads            int            `json:"threads"`
	ForceCompress      bool           `json:"force_compress"`
	Rules              []StrategyRule `json:"rules"`
	SizeRules          []SizeRule     `json:"size_rules"`
	LargeFileThreshold int64          `json:"large_file_threshold"`
	EnableLongMode     bool           `json:"enable_long_mode"`

	OutputFormat   string `json:"output_format"`
	ConflictPolicy string `json:"conflict_policy"`
	Hoist          bool   `json:"hoist"`

	MaxCompressionRatio float64 `json:"max_compression_ratio"`
	MaxExtractionBytes  int64   `json:"max_extraction_bytes"`

	// LoadedPath is where this config was read from, and where Save
	// writes it back. Not persisted itself.
	LoadedPath string `json:"-"`
}

// Defaults returns the built-in default configuration, matching
// spec.md §4.4's algorithm: Zstd level 3 default rule, 1024-byte
// min_file_size floor, and original_source's SecurityOptions bomb
// guard defaults (ratio 1000:1, absolute floor handled in pkg/pathsafety).
func Defaults() *Config {
	return &Config{
		DefaultLevel:        "INFO",
		MinFileSize:         1024,
		Threads:             4,
		ForceCompress:       false,
		Rules:               nil,
		SizeRules:           nil,
		LargeFileThreshold:  100 * 1024 * 1024,
		EnableLongMode:      true,
		OutputFormat:        "tar.zst",
		ConflictPolicy:      "Skip",
		Hoist:               false,
		MaxCompressionRatio: 1000.0,
		MaxExtractionBytes:  10 * 1024 * 1024 * 1024,
	}
}

// Load reads configuration from configPath (creating it with defaults
// if absent), then applies environment variable overrides, then saves
// the merged configuration back. Environment variables are read once,
// at startup, per pkg/env.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()
	cfg.LoadedPath = configPath

	if err := cfg.LoadFile(configPath); err != nil {
		if os.IsNotExist(err) {
			logger.Info("no config found, using defaults", "path", configPath)
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "err", err)
		}
	} else {
		logger.Info("loaded configuration", "path", configPath)
	}

	overrides, keys := env.ReadConfigOverrides()
	ApplyEnvOverrides(cfg, overrides, keys)

	if err := cfg.Save(); err != nil {
		logger.Warn("failed to save merged config", "err", err)
	}

	return cfg, nil
}

// LoadFile overrides cfg with values decoded from a JSON file at path.
func (c *Config) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return json.NewDecoder(file).Decode(c)
}

// Save writes the current configuration back to LoadedPath.
func (c *Config) Save() error {
	path := c.LoadedPath
	if path == "" {
		path = "config.json"
	}
	return c.SaveFile(path)
}

// SaveFile writes the current configuration as indented JSON to path.
func (c *Config) SaveFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

func keySet(list []string, s string) bool {
	for _, k := range list {
		if k == s {
			return true
		}
	}
	return false
}

// ApplyEnvOverrides applies environment-derived overrides to cfg. Only
// fields whose key is present in keys are touched, so a config.json
// value survives when no environment variable names it.
func ApplyEnvOverrides(cfg *Config, o env.ConfigOverrides, keys []string) {
	if keySet(keys, env.KeyLogLevel) {
		cfg.DefaultLevel = o.LogLevel
	}
	if keySet(keys, env.KeyThreads) {
		cfg.Threads = o.Threads
	}
	if keySet(keys, env.KeyMinFileSize) {
		cfg.MinFileSize = o.MinFileSize
	}
	if keySet(keys, env.KeyForceCompress) {
		cfg.ForceCompress = o.ForceCompress
	}
	if keySet(keys, env.KeyLargeFileThreshold) {
		cfg.LargeFileThreshold = o.LargeFileThreshold
	}
	if keySet(keys, env.KeyEnableLongMode) {
		cfg.EnableLongMode = o.EnableLongMode
	}
	if keySet(keys, env.KeyConflictPolicy) {
		cfg.ConflictPolicy = o.ConflictPolicy
	}
	if keySet(keys, env.KeyMaxCompressRatio) {
		cfg.MaxCompressionRatio = o.MaxCompressRatio
	}
	if keySet(keys, env.KeyMaxExtractionBytes) {
		cfg.MaxExtractionBytes = o.MaxExtractionBytes
	}
}

// GetEnvOverrideKeys returns config JSON keys that have environment
// variable overrides set, which will be overwritten again on restart.
func GetEnvOverrideKeys() []string {
	return env.OverrideKeys()
}
