package store

import (
	"bytes"
	"io"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// ConfigName is the workspace-wide configuration file name.
const ConfigName = "config.toml"

// Config holds workspace-wide settings that apply across every package,
// as opposed to the per-package entries in audits.toml. Both fields are
// loaded and saved with config.toml, but neither policy resolution nor
// `vet` reads them.
type Config struct {
	// DefaultCriteria is the `default-criteria` list. Roots without an
	// explicit policy entry still get the built-in default self-policy
	// (safe-to-deploy if runtime-relevant, else safe-to-run); this list
	// does not replace it.
	DefaultCriteria []string
	// UnauditedDepsAllowed is the `unaudited-deps-allowed` flag. MissingAudit
	// signals still fail `vet` when it is set.
	UnauditedDepsAllowed bool
}

type rawConfig struct {
	DefaultCriteria      []string `toml:"default-criteria,omitempty"`
	UnauditedDepsAllowed bool     `toml:"unaudited-deps-allowed,omitempty"`
}

// LoadConfig parses r as config.toml.
func LoadConfig(r io.Reader) (*Config, error) {
	buf := &bytes.Buffer{}
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, errors.Wrap(err, "store: unable to read config.toml")
	}
	var raw rawConfig
	if err := toml.Unmarshal(buf.Bytes(), &raw); err != nil {
		return nil, errors.Wrap(err, "store: unable to parse config.toml")
	}
	return &Config{DefaultCriteria: raw.DefaultCriteria, UnauditedDepsAllowed: raw.UnauditedDepsAllowed}, nil
}

// MarshalConfig serializes c to config.toml bytes.
func MarshalConfig(c *Config) ([]byte, error) {
	raw := rawConfig{DefaultCriteria: c.DefaultCriteria, UnauditedDepsAllowed: c.UnauditedDepsAllowed}
	out, err := toml.Marshal(raw)
	if err != nil {
		return nil, errors.Wrap(err, "store: unable to marshal config.toml")
	}
	return out, nil
}
