package migration

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

const modulePath = "github.com/elskow/assessgate"

// getMigrationsDir returns the configured directory, or <module root>/migrations.
func getMigrationsDir(override string) (string, error) {
	if override != "" {
		return filepath.Abs(override)
	}

	dir, err := findModuleRoot()
	if err != nil {
		return "", fmt.Errorf("failed to find project root: %w", err)
	}

	return filepath.Join(dir, "migrations"), nil
}

// findModuleRoot walks up from the working directory to our go.mod
func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		gomod := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(gomod); err == nil {
			content, err := os.ReadFile(gomod)
			if err != nil {
				return "", err
			}

			if modfile.ModulePath(content) == modulePath {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod for %s not found", modulePath)
		}
		dir = parent
	}
}
