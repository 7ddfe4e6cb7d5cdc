// Config loading for the ordertracker CLI.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/ordertracker/internal/paths"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	// Config keys.
	cfgKeyDataDir   = "data_dir"
	cfgKeyAdminMode = "admin_mode"
	cfgKeyLogLevel  = "log_level"
	cfgKeyLogFormat = "log_format"
	cfgKeyOutput    = "output"

	// envLog overrides log_level from the environment.
	envLog = "ORDERTRACKER_LOG"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# ordertracker configuration

# Application directory holding company_data.db (optional; overridable by --data-dir)
# data_dir:

# Mutating commands are refused when admin_mode is false
admin_mode: true

# Log spec: base level and optional per-component levels, e.g. "info,store=debug"
log_level: warn
log_format: text

# Default output format: table, json, csv or markdown
output: table
`

// loadConfig reads config.yaml from configDir using Viper. It creates the
// config directory and a default config.yaml on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyAdminMode, true)
	v.SetDefault(cfgKeyLogLevel, "warn")
	v.SetDefault(cfgKeyLogFormat, "text")
	v.SetDefault(cfgKeyOutput, "table")
	if err := v.BindEnv(cfgKeyLogLevel, envLog); err != nil {
		return nil, err
	}
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, paths.ConfigFileName)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
