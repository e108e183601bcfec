package shared

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadEnv reads .env files into the process environment without overriding
// variables that are already set. With no paths, ".env" is used.
//
// A missing file is reported as an error; callers may ignore it.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// ApplyEnv overrides config values from VYRA_* environment variables.
func ApplyEnv(c *Config) {
	c.Server.Host = GetEnv("VYRA_HOST", c.Server.Host)
	c.Server.Port = GetEnvInt("VYRA_PORT", c.Server.Port)
	c.YouTube.APIKey = GetEnv("VYRA_API_KEY", c.YouTube.APIKey)
	c.Log.Level = GetEnv("VYRA_LOG_LEVEL", c.Log.Level)
	c.Log.File = GetEnv("VYRA_LOG_FILE", c.Log.File)
	c.Database.Path = GetEnv("VYRA_DATABASE", c.Database.Path)
	c.Downloads.Dir = GetEnv("VYRA_DOWNLOAD_DIR", c.Downloads.Dir)
}
