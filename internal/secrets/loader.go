// Package secrets resolves credentials from files, inline config values or the environment.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source describes where a secret may come from. The first non-empty location wins,
// in the order File, Value, Env.
type Source struct {
	// Name is used in error messages.
	Name string
	// File points to a file holding the secret. A leading "~/" is expanded to the home directory.
	File string
	// Value is an inline secret from configuration or flags.
	Value string
	// Env names an environment variable.
	Env string
}

// Load returns the trimmed secret or an error naming what was tried.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		return fromFile(name, file)
	}

	if value := strings.TrimSpace(src.Value); value != "" {
		return value, nil
	}

	if env := strings.TrimSpace(src.Env); env != "" {
		if value := strings.TrimSpace(os.Getenv(env)); value != "" {
			return value, nil
		}
		return "", fmt.Errorf("%s is not configured (%s is empty)", name, env)
	}

	return "", fmt.Errorf("%s is not configured", name)
}

func fromFile(name, file string) (string, error) {
	path, err := expandHome(file)
	if err != nil {
		return "", fmt.Errorf("resolving %s file %q: %w", name, file, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s from file %q: %w", name, path, err)
	}

	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("%s file %q is empty", name, path)
	}
	return secret, nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}
