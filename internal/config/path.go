package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/home fallback rules for the config file location.
// When no explicit path is given, config.toml is used if it exists beside the
// default config.jsonc and config.jsonc does not.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	dir, err := configDir()
	if err != nil {
		return "", err
	}

	jsoncPath := filepath.Join(dir, "config.jsonc")
	tomlPath := filepath.Join(dir, "config.toml")
	if !fileExists(jsoncPath) && fileExists(tomlPath) {
		return tomlPath, nil
	}
	return jsoncPath, nil
}

func configDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "lingua"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}
	return filepath.Join(home, ".config", "lingua"), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
