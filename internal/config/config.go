// Package config loads the process configuration for a catalogstore
// deployment: which (server, database) scheme to operate on, which object
// store backend to use, and the rebuild engine's tolerance settings. Values
// come from defaults, a config file, and environment variables, in that
// order of increasing precedence, via viper. CLI flags are not bound.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix config.Load recognizes
// (e.g. CATALOGSTORE_SERVER_ID).
const EnvPrefix = "CATALOGSTORE"

// ObjectStoreConfig selects and parameterizes one objectstore.Registry
// backend. Kind is the registry key ("memory", "disk", "s3", "gcs",
// "azure"); Params is handed to the backend constructor verbatim.
type ObjectStoreConfig struct {
	Kind   string            `mapstructure:"kind"`
	Params map[string]string `mapstructure:"params"`
}

// Config is the complete process configuration.
type Config struct {
	ServerID                  string            `mapstructure:"server_id"`
	Database                  string            `mapstructure:"database"`
	ObjectStore               ObjectStoreConfig `mapstructure:"object_store"`
	IgnoreMetadataReadFailure bool              `mapstructure:"ignore_metadata_read_failure"`
}

// Load reads configuration from configPath (if non-empty), environment
// variables prefixed with EnvPrefix, and applies defaults for anything
// still unset. Environment variables always win over the config file.
func Load(configPath string) (Config, error) {
	v := viper.New()

	v.SetDefault("server_id", "1")
	v.SetDefault("object_store.kind", "memory")
	v.SetDefault("ignore_metadata_read_failure", false)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.Database == "" {
		return Config{}, fmt.Errorf("config: %q is required", "database")
	}
	return cfg, nil
}
