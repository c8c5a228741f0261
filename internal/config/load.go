package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Loaded is the resolved config plus where it came from and what to warn about.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load reads the config file, overlays it on Default, and validates the
// result. A missing file is not an error: lingua runs on defaults and says so.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{Path: path, Config: Default()}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = []Warning{{Message: fmt.Sprintf("config file %q not found; using defaults", path)}}
		return loaded, nil
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), FormatForPath(path), loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	if strings.TrimSpace(cfg.API.Token) != "" {
		if warning, ok := tokenFileWarning(path); ok {
			warnings = append(warnings, warning)
		}
	}

	loaded.Config = cfg
	loaded.Warnings = warnings
	loaded.Exists = true
	return loaded, nil
}

// tokenFileWarning flags a config holding api.token that other users can read.
func tokenFileWarning(path string) (Warning, bool) {
	info, err := os.Stat(path)
	if err != nil || info.Mode().Perm()&0o077 == 0 {
		return Warning{}, false
	}
	return Warning{Message: fmt.Sprintf(
		"config file %q holds api.token and is readable by other users (mode %04o); run chmod 600 on it",
		path, info.Mode().Perm(),
	)}, true
}
