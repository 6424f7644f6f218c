package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/quantmind-br/jsonbundler/internal/schema"
	"github.com/quantmind-br/jsonbundler/internal/validator"
)

// Default values
const (
	DefaultManifest = "environments.json"

	// Schema defaults
	DefaultSchemaPattern = schema.DefaultPattern
	DefaultSchemaDraft   = validator.DefaultDraft

	// Output defaults
	DefaultIndent = 4
	MaxIndent     = 16

	// Concurrency defaults
	DefaultWorkers = 4
	MaxWorkers     = 64

	// State defaults
	DefaultStateEnabled = true
	DefaultStateDir     = ".jsonbundler/state"

	// Watch defaults
	DefaultDebounce = 300 * time.Millisecond
	MinDebounce     = 50 * time.Millisecond

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "pretty"
)

// DefaultWatchExclude lists directory names never watched
var DefaultWatchExclude = []string{
	".git",
	".jsonbundler",
	"node_modules",
}

// ConfigDir returns the config directory path
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".jsonbundler"
	}
	return filepath.Join(home, ".jsonbundler")
}

// ConfigFilePath returns the config file path
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Manifest: DefaultManifest,
		Schema: SchemaConfig{
			Pattern: DefaultSchemaPattern,
			Draft:   DefaultSchemaDraft,
		},
		Output: OutputConfig{
			Indent: DefaultIndent,
		},
		Concurrency: ConcurrencyConfig{
			Workers: DefaultWorkers,
		},
		State: StateConfig{
			Enabled:   DefaultStateEnabled,
			Directory: DefaultStateDir,
		},
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
			Exclude:  DefaultWatchExclude,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
