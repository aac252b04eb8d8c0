package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/omars-lab/knowledge-agents/internal/apperr"
)

// SecretSource lists, in priority order, the places a secret is looked up:
// a mounted secret file, a project-local file, then an environment
// variable, and finally — only when explicitly permitted — a built-in
// development fallback.
type SecretSource struct {
	MountedFilePath string
	LocalFilePath   string
	EnvVar          string
}

// LoadSecret resolves a secret through SecretSource's priority chain. When
// required is true and no source yields a non-empty value, it returns a
// ConfigError.
func LoadSecret(src SecretSource, required bool, devFallback string, allowDevFallback bool) (string, error) {
	if v, ok := readFile(src.MountedFilePath); ok {
		return v, nil
	}
	if v, ok := readFile(src.LocalFilePath); ok {
		return v, nil
	}
	if src.EnvVar != "" {
		if v := strings.TrimSpace(os.Getenv(src.EnvVar)); v != "" {
			return v, nil
		}
	}
	if allowDevFallback && devFallback != "" {
		return devFallback, nil
	}
	if required {
		return "", apperr.Config("required secret not found in any configured source", nil)
	}
	return "", nil
}

func readFile(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", false
	}
	return v, true
}
