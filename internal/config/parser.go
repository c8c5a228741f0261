package config

import (
	"path/filepath"
	"strings"
)

// Format identifies the on-disk config syntax.
type Format string

const (
	FormatJSONC Format = "jsonc"
	FormatTOML  Format = "toml"
)

// FormatForPath picks TOML for *.toml files and JSONC for everything else.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatJSONC
}

// Parse reads configuration content in the given format and overlays it on base.
func Parse(content string, format Format, base Config) (Config, []Warning, error) {
	if strings.TrimSpace(content) == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}

	if format == FormatTOML {
		return parseTOML(content, base)
	}
	return parseJSONC(content, base)
}
