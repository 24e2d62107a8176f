// Package config loads the catalog CLI's configuration: a YAML file
// under the resolved config directory, environment variable overrides,
// and flag values, in that increasing order of precedence, the way
// cmd/cupboard's config.go builds a Viper instance (adapted here for
// the catalog domain rather than a generic key/value backend choice).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
	fileExt  = "config.yaml"

	// KeyDatabasePath overrides the default database file location.
	KeyDatabasePath = "database_path"
	// KeyLogPath overrides the default rotating log file location.
	KeyLogPath = "log_path"
	// KeyLogMaxSizeMB caps the rotating log file's size before rollover.
	KeyLogMaxSizeMB = "log_max_size_mb"
	// KeyRuleFile points at the YAML automatic-categorization rule file.
	KeyRuleFile = "rule_file"
)

const defaultYAML = `# SynthVault catalog configuration.
# database_path: ""
# log_path: ""
log_max_size_mb: 20
# rule_file: ""
`

// Load reads config.yaml from dir using Viper, creating the directory
// and a default file on first run. A missing config.yaml is not an
// error.
func Load(dir string) (*viper.Viper, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("ensuring config dir %s: %w", dir, err)
	}
	if err := ensureDefaultFile(dir); err != nil {
		return nil, fmt.Errorf("ensuring default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(KeyLogMaxSizeMB, 20)
	v.SetConfigName(fileName)
	v.SetConfigType(fileType)
	v.AddConfigPath(dir)
	v.SetEnvPrefix("SYNTHVAULT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return v, nil
}

func ensureDefaultFile(dir string) error {
	path := filepath.Join(dir, fileExt)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("statting %s: %w", path, err)
	}
	return os.WriteFile(path, []byte(defaultYAML), 0o600)
}
