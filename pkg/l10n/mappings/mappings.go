// Package mappings ships the built-in, versioned mapping sets.
package mappings

import (
	"embed"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/jacksonlee411/hr-attrition-l10n/pkg/l10n"
)

//go:embed *.yaml
var Files embed.FS

// LatestVersion is the mapping set used when none is requested.
const LatestVersion = "v5"

// Versions lists the built-in mapping set ids in release order.
func Versions() []string {
	entries, err := Files.ReadDir(".")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || path.Ext(name) != ".yaml" {
			continue
		}
		out = append(out, strings.TrimSuffix(name, ".yaml"))
	}
	sort.Slice(out, func(i, j int) bool { return versionLess(out[i], out[j]) })
	return out
}

func versionLess(a, b string) bool {
	na, errA := strconv.Atoi(strings.TrimPrefix(a, "v"))
	nb, errB := strconv.Atoi(strings.TrimPrefix(b, "v"))
	if errA != nil || errB != nil {
		return a < b
	}
	return na < nb
}

// Raw returns the embedded YAML source of a mapping set.
func Raw(version string) ([]byte, error) {
	version = strings.ToLower(strings.TrimSpace(version))
	if version == "" || strings.ContainsAny(version, "/\\.") {
		return nil, errors.Wrapf(l10n.ErrUnknownVersion, "%q", version)
	}
	raw, err := Files.ReadFile(version + ".yaml")
	if err != nil {
		return nil, errors.Wrapf(l10n.ErrUnknownVersion, "%q (available: %s)", version, strings.Join(Versions(), ", "))
	}
	return raw, nil
}

// Load parses and validates a built-in mapping set. Every call returns a
// fresh Config the caller may modify.
func Load(version string) (*l10n.Config, error) {
	raw, err := Raw(version)
	if err != nil {
		return nil, err
	}
	cfg, err := l10n.Parse(raw, l10n.EncodingYAML)
	if err != nil {
		return nil, errors.Wrapf(err, "built-in mapping %s", version)
	}
	return cfg, nil
}

func Latest() (*l10n.Config, error) {
	return Load(LatestVersion)
}
