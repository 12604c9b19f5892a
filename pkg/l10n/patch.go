package l10n

import (
	"bytes"
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/go-faster/errors"
	jsondiff "github.com/wI2L/jsondiff"
)

// Diff returns the RFC 6902 patch that turns from into to.
func Diff(from, to *Config) ([]byte, error) {
	before, err := json.Marshal(from)
	if err != nil {
		return nil, errors.Wrap(err, "marshal source mapping")
	}
	after, err := json.Marshal(to)
	if err != nil {
		return nil, errors.Wrap(err, "marshal target mapping")
	}
	patch, err := jsondiff.CompareJSON(before, after)
	if err != nil {
		return nil, errors.Wrap(err, "compare mappings")
	}
	if patch == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(patch)
}

// ApplyPatch applies an RFC 6902 patch to a copy of cfg and validates the
// result. cfg itself is left untouched.
func ApplyPatch(cfg *Config, patch []byte) (*Config, error) {
	ops, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "decode patch: %v", err)
	}
	before, err := json.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "marshal mapping")
	}
	after, err := ops.Apply(before)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "apply patch: %v", err)
	}

	var out Config
	dec := json.NewDecoder(bytes.NewReader(after))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "patched mapping: %v", err)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}
