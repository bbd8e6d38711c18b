package config

import (
	"fmt"
	"os"
)

const header = "# ethtoolctl configuration\n\n"

// Template renders the default configuration.
func Template() (string, error) {
	b, err := Encode(Default())
	if err != nil {
		return "", fmt.Errorf("render config template: %w", err)
	}
	return header + string(b), nil
}

func WriteTemplate(path string, overwrite bool) error {
	template, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
