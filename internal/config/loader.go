package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variable overrides (JSONBUNDLER_OUTPUT_INDENT)
const EnvPrefix = "JSONBUNDLER"

// Load loads configuration from file, environment, and defaults.
// Uses the global viper instance to access CLI flag bindings.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom loads configuration into v. An explicit config file set on v must
// exist; otherwise config.yaml is searched in the config directory and the
// working directory and may be absent.
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	explicit := v.ConfigFileUsed()
	if explicit == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file %s: %w", explicit, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("manifest", DefaultManifest)

	v.SetDefault("schema.pattern", DefaultSchemaPattern)
	v.SetDefault("schema.draft", DefaultSchemaDraft)

	v.SetDefault("output.indent", DefaultIndent)
	v.SetDefault("output.force", false)
	v.SetDefault("output.report", "")

	v.SetDefault("concurrency.workers", DefaultWorkers)

	v.SetDefault("state.enabled", DefaultStateEnabled)
	v.SetDefault("state.directory", DefaultStateDir)

	v.SetDefault("watch.debounce", DefaultDebounce)
	v.SetDefault("watch.exclude", DefaultWatchExclude)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
}
