package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"dondog-go/pkg/logger"
	"github.com/joho/godotenv"
)

const (
	dotenvFilename = ".env"
	dotenvFileVar  = "DOTENV_FILE"
)

// loadDotEnv applies DOTENV_FILE when set, otherwise the nearest .env above
// the working directory. Variables already present in the environment win.
func loadDotEnv(log logger.Logger) error {
	path, err := dotenvPath()
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var loaded, skipped int
	for key, value := range values {
		if _, exists := os.LookupEnv(key); exists {
			skipped++
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
		loaded++
	}

	log.Info("dotenv: applied", "path", path, "loaded", loaded, "skipped", skipped)
	return nil
}

func dotenvPath() (string, error) {
	if explicit := os.Getenv(dotenvFileVar); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("%s: %v", dotenvFileVar, err)
		}
		return explicit, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return searchUp(dir, dotenvFilename)
}

func searchUp(dir, filename string) (string, error) {
	for {
		candidate := filepath.Join(dir, filename)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
