package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnvFiles reads .env files in order. Later files override earlier
// ones.
func LoadEnvFiles(paths ...string) (map[string]string, error) {
	env := make(map[string]string)
	for _, p := range paths {
		values, err := godotenv.Read(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", p, err)
		}
		for k, v := range values {
			env[k] = v
		}
	}
	return env, nil
}

// ParseEnvPairs parses KEY=VALUE pairs. The value may be empty; the key may
// not.
func ParseEnvPairs(pairs []string) (map[string]string, error) {
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid environment entry %q, expected KEY=VALUE", pair)
		}
		env[strings.TrimSpace(k)] = v
	}
	return env, nil
}
