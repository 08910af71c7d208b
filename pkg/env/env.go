// Package env consolidates all environment variable reading for the
// application. Overrides are applied once at startup (see config.Load).
package env

import (
	"os"
	"strconv"
	"strings"
)

// Environment variable names (single source of truth)
const (
	LogLevel           = "ARCHIVEKIT_LOG_LEVEL"
	Threads            = "ARCHIVEKIT_THREADS"
	MinFileSize        = "ARCHIVEKIT_MIN_FILE_SIZE"
	ForceCompress      = "ARCHIVEKIT_FORCE_COMPRESS"
	LargeFileThreshold = "ARCHIVEKIT_LARGE_FILE_THRESHOLD"
	EnableLongMode     = "ARCHIVEKIT_ENABLE_LONG_MODE"
	ConflictPolicy     = "ARCHIVEKIT_CONFLICT_POLICY"
	MaxCompressRatio   = "ARCHIVEKIT_MAX_COMPRESSION_RATIO"
	MaxExtractionBytes = "ARCHIVEKIT_MAX_EXTRACTION_BYTES"
)

// Config JSON keys returned by OverrideKeys, naming which config.json
// fields were overridden by an environment variable at startup.
const (
	KeyLogLevel           = "default_level"
	KeyThreads             = "threads"
	KeyMinFileSize         = "min_file_size"
	KeyForceCompress       = "force_compress"
	KeyLargeFileThreshold  = "large_file_threshold"
	KeyEnableLongMode      = "enable_long_mode"
	KeyConflictPolicy      = "conflict_policy"
	KeyMaxCompressRatio    = "max_compression_ratio"
	KeyMaxExtractionBytes  = "max_extraction_bytes"
)

// LogLevelValue returns ARCHIVEKIT_LOG_LEVEL with default "INFO", for
// early logger init before config is loaded.
func LogLevelValue() string {
	return getEnv(LogLevel, "INFO")
}

// ConfigOverrides holds config values that can be set via environment
// variables, applied on top of config.json at startup.
type ConfigOverrides struct {
	LogLevel           string
	Threads            int
	MinFileSize        int64
	ForceCompress      bool
	LargeFileThreshold int64
	EnableLongMode     bool
	ConflictPolicy     string
	MaxCompressRatio   float64
	MaxExtractionBytes int64
}

// ReadConfigOverrides reads all relevant environment variables once and
// returns overrides to apply to config plus the list of config JSON keys
// that were set explicitly.
func ReadConfigOverrides() (ConfigOverrides, []string) {
	var o ConfigOverrides
	var keys []string

	if v := os.Getenv(LogLevel); v != "" {
		o.LogLevel = v
		keys = append(keys, KeyLogLevel)
	}
	if v := os.Getenv(Threads); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			o.Threads = n
			keys = append(keys, KeyThreads)
		}
	}
	if v := os.Getenv(MinFileSize); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			o.MinFileSize = n
			keys = append(keys, KeyMinFileSize)
		}
	}
	if v := os.Getenv(ForceCompress); v != "" {
		o.ForceCompress = strings.ToLower(v) == "true" || v == "1"
		keys = append(keys, KeyForceCompress)
	}
	if v := os.Getenv(LargeFileThreshold); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			o.LargeFileThreshold = n
			keys = append(keys, KeyLargeFileThreshold)
		}
	}
	if v := os.Getenv(EnableLongMode); v != "" {
		o.EnableLongMode = strings.ToLower(v) == "true" || v == "1"
		keys = append(keys, KeyEnableLongMode)
	}
	if v := os.Getenv(ConflictPolicy); v != "" {
		o.ConflictPolicy = v
		keys = append(keys, KeyConflictPolicy)
	}
	if v := os.Getenv(MaxCompressRatio); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			o.MaxCompressRatio = f
			keys = append(keys, KeyMaxCompressRatio)
		}
	}
	if v := os.Getenv(MaxExtractionBytes); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			o.MaxExtractionBytes = n
			keys = append(keys, KeyMaxExtractionBytes)
		}
	}

	return o, keys
}

// OverrideKeys returns the config JSON keys that have environment
// overrides set, for diagnostics about which settings will be
// overwritten on next restart.
func OverrideKeys() []string {
	_, keys := ReadConfigOverrides()
	return keys
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
