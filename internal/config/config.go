package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	DBPath          string `yaml:"db_path"`
	Jobs            int    `yaml:"jobs"`
	SerialApply     bool   `yaml:"serial_apply"`
	DefaultResolver string `yaml:"default_resolver"`
	LogLevel        string `yaml:"log_level"`
	Output          string `yaml:"output"`
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/foldermerge/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := &Config{
		Jobs:            0, // 0 means "default to runtime.NumCPU()"
		DefaultResolver: "interactive",
		LogLevel:        "info",
		Output:          "table",
	}

	// Load .env.local if it exists (walking up parent directories)
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// Load ~/.config/foldermerge/config.yaml if it exists
	if err := loadYAMLConfig(cfg); err != nil {
		// YAML config is optional, so we don't fail if it doesn't exist
	}

	// Override with environment variables
	if dbPath := getEnvOrFile("FOLDERMERGE_DB_PATH", "FOLDERMERGE_DB_PATH_FILE"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if jobs := os.Getenv("FOLDERMERGE_JOBS"); jobs != "" {
		if n, err := parsePositiveInt(jobs); err == nil {
			cfg.Jobs = n
		}
	}
	if serial := os.Getenv("FOLDERMERGE_SERIAL_APPLY"); serial != "" {
		cfg.SerialApply = serial == "1" || serial == "true"
	}
	if resolver := os.Getenv("FOLDERMERGE_RESOLVER"); resolver != "" {
		cfg.DefaultResolver = resolver
	}
	if logLevel := os.Getenv("FOLDERMERGE_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if output := os.Getenv("FOLDERMERGE_OUTPUT"); output != "" {
		cfg.Output = output
	}

	// DBPath is intentionally left empty here if unset by env or YAML: the
	// merge command's own default (merge_checkpoint.db in the working
	// directory) only applies once a --db flag and FOLDERMERGE_DB_PATH have
	// both been ruled out.

	return cfg, nil
}

// loadYAMLConfig loads configuration from ~/.config/foldermerge/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(homeDir, ".config", "foldermerge", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return string(data)
		}
	}

	return ""
}

func parsePositiveInt(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("value must be positive: %q", s)
	}
	return n, nil
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
// Returns the path to .env.local if found, empty string otherwise.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, just check cwd
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Clean paths for reliable comparison
	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		// Stop if we've reached home directory
		if dir == homeDir {
			break
		}

		// Get parent directory
		parent := filepath.Dir(dir)

		// Stop if we've reached the filesystem root
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}
