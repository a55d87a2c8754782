package netchat

import (
	"os"

	"github.com/joho/godotenv"
)

type ConfigLoader interface {
	Load() (*Config, error)
}

// EnvConfigLoader loads the configuration from environment variables,
// reading a .env file first when one exists.
type EnvConfigLoader struct {
}

func (l *EnvConfigLoader) Load() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	config := &Config{}
	config.Server = getEnv("SERVER")
	config.Username = getEnv("USERNAME")
	config.SQLite.File = getEnv("SQLITE_FILE")
	config.Credentials.File = getEnv("CREDENTIALS_FILE")
	return config, nil
}

type DefaultConfigLoader struct {
}

func (l *DefaultConfigLoader) Load() (*Config, error) {
	config := &Config{}
	config.Server = "http://localhost:8080"
	config.SQLite.File = "./netchat.db"
	config.Credentials.File = "./credentials.json"
	return config, nil
}

// Utility function to get an environment variable with a default value
func getEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return ""
	}
	return value
}
