package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func ensureDir(path string) error {
	if strings.TrimSpace(path) == "" {
		return withCode(exitUsage, fmt.Errorf("output directory is empty"))
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return withCode(exitWrite, fmt.Errorf("mkdir %s: %w", path, err))
	}
	return nil
}

// ensureParent creates the directory that will hold file.
func ensureParent(file string) error {
	return ensureDir(filepath.Dir(file))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
