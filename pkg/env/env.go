// Package env reads process environment variables outside the envconfig
// struct machinery, for knobs that must resolve before config loads.
package env

import "os"

// Get reads key from the environment, falling back when unset or empty.
func Get(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
