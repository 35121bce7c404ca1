package utils

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// LoadEnv loads .env and, when env is set, .env.<env> on top of it.
// Variables already present in the process environment are never overridden.
func LoadEnv(env string) error {
	files := []string{}
	if env != "" {
		files = append(files, ".env."+env)
	}
	files = append(files, ".env")

	var loaded int
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("no env file found (tried %s)", strings.Join(files, ", "))
	}
	return nil
}

// GetEnv returns the trimmed value of key
func GetEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// GetIntEnv returns key as int64, 0 when unset or malformed
func GetIntEnv(key string) int64 {
	return cast.ToInt64(GetEnv(key))
}

// GetBoolEnv accepts the usual spellings (1, t, true, TRUE ...)
func GetBoolEnv(key string) bool {
	return cast.ToBool(GetEnv(key))
}

// GetDurationEnv parses key as a duration. Bare integers are read as seconds.
func GetDurationEnv(key string) time.Duration {
	v := GetEnv(key)
	if v == "" {
		return 0
	}
	if n, err := cast.ToInt64E(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return cast.ToDuration(v)
}

// GetFloatEnv parses key as float64
func GetFloatEnv(key string) (float64, error) {
	return cast.ToFloat64E(GetEnv(key))
}
