package config

import (
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/quantmind-br/jsonbundler/internal/validator"
)

// Config represents the application configuration
type Config struct {
	// Manifest is the environment listing file
	Manifest    string            `mapstructure:"manifest" yaml:"manifest"`
	Schema      SchemaConfig      `mapstructure:"schema" yaml:"schema"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency" yaml:"concurrency"`
	State       StateConfig       `mapstructure:"state" yaml:"state"`
	Watch       WatchConfig       `mapstructure:"watch" yaml:"watch"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

// SchemaConfig contains schema registry settings
type SchemaConfig struct {
	Pattern string `mapstructure:"pattern" yaml:"pattern"`
	Draft   string `mapstructure:"draft" yaml:"draft"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	Indent int  `mapstructure:"indent" yaml:"indent"`
	Force  bool `mapstructure:"force" yaml:"force"`
	// Report is an optional path for a JSON run report
	Report string `mapstructure:"report" yaml:"report"`
}

// ConcurrencyConfig contains concurrency settings
type ConcurrencyConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// StateConfig contains build history settings
type StateConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Directory string `mapstructure:"directory" yaml:"directory"`
}

// WatchConfig contains watch mode settings
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
	Exclude  []string      `mapstructure:"exclude" yaml:"exclude"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Validate validates the configuration, replacing out-of-range values with
// defaults
func (c *Config) Validate() error {
	if c.Manifest == "" {
		c.Manifest = DefaultManifest
	}
	if c.Concurrency.Workers < 1 || c.Concurrency.Workers > MaxWorkers {
		c.Concurrency.Workers = DefaultWorkers
	}
	if c.Output.Indent < 1 || c.Output.Indent > MaxIndent {
		c.Output.Indent = DefaultIndent
	}
	if c.Watch.Debounce < MinDebounce {
		c.Watch.Debounce = DefaultDebounce
	}
	if c.State.Directory == "" {
		c.State.Directory = DefaultStateDir
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}

	if c.Schema.Pattern == "" {
		c.Schema.Pattern = DefaultSchemaPattern
	} else if !doublestar.ValidatePattern(c.Schema.Pattern) {
		return fmt.Errorf("invalid schema.pattern: %q", c.Schema.Pattern)
	}
	if c.Schema.Draft == "" {
		c.Schema.Draft = DefaultSchemaDraft
	} else if _, err := validator.DraftByName(c.Schema.Draft); err != nil {
		return fmt.Errorf("invalid schema.draft: %w", err)
	}
	return nil
}
