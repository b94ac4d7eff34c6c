package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the file written by GenerateDefaultConfigFile when no
// name is given.
const DefaultConfigFile = ConfigFileName + ".yaml"

// ToYAML renders cfg as a YAML document.
func ToYAML(cfg Config) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// GenerateDefaultConfigFile writes the default configuration as YAML. It
// refuses to overwrite an existing file unless force is set.
func GenerateDefaultConfigFile(filename string, force bool) (string, error) {
	if filename == "" {
		filename = DefaultConfigFile
	}
	if !force {
		if _, err := os.Stat(filename); err == nil {
			return "", fmt.Errorf("config file already exists: %s (use --force to overwrite)", filename)
		}
	}

	out, err := ToYAML(DefaultConfig())
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filename, []byte(out), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return filename, nil
}
