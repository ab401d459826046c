package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// loadEnvFiles loads .env then .env.local from the working directory or a
// parent, without overriding variables already set in the environment.
func loadEnvFiles() {
	for _, name := range []string{".env", ".env.local"} {
		if path, ok := findUp(name, 5); ok {
			godotenv.Load(path)
		}
	}
}

// findUp searches for a file in the current and up to maxDepth parent
// directories.
func findUp(name string, maxDepth int) (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for i := 0; i < maxDepth; i++ {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

// GetString returns an env value or the default.
func GetString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// GetInt returns an int env value or the default.
func GetInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

// GetBool returns a bool env value or the default.
func GetBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
