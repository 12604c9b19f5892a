package l10n

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"
)

type Encoding string

const (
	EncodingYAML Encoding = "yaml"
	EncodingTOML Encoding = "toml"
)

// EncodingFromPath picks the config encoding from a file extension.
func EncodingFromPath(path string) (Encoding, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return EncodingYAML, nil
	case ".toml":
		return EncodingTOML, nil
	default:
		return "", errors.Wrapf(ErrInvalidConfig, "unsupported config extension: %s", path)
	}
}

// LoadFile reads and validates a mapping set from a YAML or TOML file.
func LoadFile(path string) (*Config, error) {
	enc, err := EncodingFromPath(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	cfg, err := Parse(raw, enc)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return cfg, nil
}

// Parse decodes a mapping set. Unknown keys are rejected so typos in a
// hand-edited file surface instead of silently disabling a mapping.
func Parse(raw []byte, enc Encoding) (*Config, error) {
	var cfg Config
	switch enc {
	case EncodingYAML:
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return nil, errors.Wrapf(ErrInvalidConfig, "decode yaml: %v", err)
		}
	case EncodingTOML:
		md, err := toml.Decode(string(raw), &cfg)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidConfig, "decode toml: %v", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.Wrapf(ErrInvalidConfig, "unknown toml key: %s", undecoded[0].String())
		}
	default:
		return nil, errors.Wrapf(ErrInvalidConfig, "unsupported encoding %q", enc)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Encode writes cfg in the requested encoding.
func Encode(w io.Writer, cfg *Config, enc Encoding) error {
	switch enc {
	case EncodingYAML:
		e := yaml.NewEncoder(w)
		e.SetIndent(2)
		if err := e.Encode(cfg); err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		if err := e.Close(); err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		return nil
	case EncodingTOML:
		if err := toml.NewEncoder(w).Encode(cfg); err != nil {
			return errors.Wrap(err, "encode toml")
		}
		return nil
	default:
		return errors.Wrapf(ErrInvalidConfig, "unsupported encoding %q", enc)
	}
}
