package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/matsen/citegraph/internal/database"
)

// DatabaseConfigFile is the default credentials file name under ConfigDir.
const DatabaseConfigFile = "databases.yml"

// Environment variables that override the credentials file.
const (
	EnvS2APIKey      = "S2_API_KEY"
	EnvOpenAlexEmail = "OPENALEX_EMAIL"
)

// DatabaseConfig maps database names to their credentials, e.g.
//
//	semanticscholar:
//	  api_key: ...
//	  api_requests_per_second: 10
//	openalex:
//	  email: me@example.org
type DatabaseConfig map[string]database.Credentials

// DatabaseConfigPath returns the default credentials file path.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/citegraph/databases.yml.
func DatabaseConfigPath() string {
	dir := configHome()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, ConfigDir, DatabaseConfigFile)
}

// LoadDatabaseConfig reads the credentials file at path, or at the default
// location when path is empty. A missing default file yields an empty
// config; a missing explicit file is an error.
func LoadDatabaseConfig(path string) (DatabaseConfig, error) {
	explicit := path != ""
	if !explicit {
		path = DatabaseConfigPath()
		if path == "" {
			return DatabaseConfig{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return DatabaseConfig{}, nil
		}
		return nil, fmt.Errorf("reading database config: %w", err)
	}

	cfg := DatabaseConfig{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing database config %s: %w", path, err)
	}
	for name, creds := range cfg {
		if creds.RequestsPerSecond < 0 {
			return nil, fmt.Errorf("%w: %s.api_requests_per_second must be >= 0", ErrInvalidOption, name)
		}
	}
	return cfg, nil
}

// Credentials returns the credentials of the named database, with
// S2_API_KEY and OPENALEX_EMAIL taking precedence over the file.
func (c DatabaseConfig) Credentials(name string) database.Credentials {
	creds := c[name]
	switch name {
	case "semanticscholar":
		if key := os.Getenv(EnvS2APIKey); key != "" {
			creds.APIKey = key
		}
	case "openalex":
		if email := os.Getenv(EnvOpenAlexEmail); email != "" {
			creds.Email = email
		}
	}
	return creds
}

// LoadDotEnv loads a .env file from the working directory into the
// environment. Variables already set are kept. A missing file is ignored.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading .env: %w", err)
}
