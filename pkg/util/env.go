package util

import (
	"os"
	"strings"
	"time"
)

// GetEnv returns the value of the environment variable named by key or def if empty.
func GetEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// FirstEnv returns the first non-empty variable among keys, or def.
func FirstEnv(def string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return def
}

// EnvDuration parses key as a time.Duration. Unset, malformed and
// non-positive values yield def.
func EnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
