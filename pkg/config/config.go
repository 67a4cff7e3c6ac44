package config

import "os"

// Config holds runtime configuration.
type Config struct {
	Root         string
	DatabasePath string
	LogLevel     string
	Actor        string
}

// Load loads configuration from environment variables.
func Load() *Config {
	root := os.Getenv("TILLER_ROOT")
	if root == "" {
		root = "."
	}

	dbPath := os.Getenv("TILLER_DB")
	if dbPath == "" {
		dbPath = "tiller.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	actor := os.Getenv("TILLER_ACTOR")
	if actor == "" {
		actor = "local"
	}

	return &Config{
		Root:         root,
		DatabasePath: dbPath,
		LogLevel:     logLevel,
		Actor:        actor,
	}
}
