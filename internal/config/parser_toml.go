package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

func parseTOML(content string, base Config) (Config, []Warning, error) {
	var payload overlay
	meta, err := toml.Decode(content, &payload)
	if err != nil {
		var parseErr toml.ParseError
		if errors.As(err, &parseErr) {
			return Config{}, nil, fmt.Errorf("line %d: %w", parseErr.Position.Line, err)
		}
		return Config{}, nil, err
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return Config{}, nil, fmt.Errorf("unknown key(s): %s", strings.Join(keys, ", "))
	}

	return finish(payload, base)
}
