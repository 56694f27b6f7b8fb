package config

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// applyTOML overrides the fields of cfg present in content. Unknown keys
// are rejected.
func applyTOML(cfg *Config, content []byte) error {
	dec := toml.NewDecoder(bytes.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("unknown TOML keys: %s", strict.String())
		}
		return fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return nil
}
