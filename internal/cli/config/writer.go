package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// WritableConfigFile returns the file that persisted changes go to: the
// config file in use, or ./leapsparql.yaml when none was found.
func WritableConfigFile() string {
	if configFileUsed != "" {
		return configFileUsed
	}
	return DefaultConfigName
}

// SaveCurrent persists name as the current endpoint in the config file at path.
// Only the file layer is rewritten; defaults, env vars and flags are not copied into it.
func SaveCurrent(path, name string) error {
	fk := koanf.New(".")
	if _, err := os.Stat(path); err == nil {
		if err := fk.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if err := fk.Set("current", name); err != nil {
		return fmt.Errorf("failed to set current endpoint: %w", err)
	}

	out, err := fk.Marshal(yaml.Parser())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
