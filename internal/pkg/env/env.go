// Package env loads configuration structs from environment variables.
package env

import (
	"fmt"

	cenv "github.com/caarlos0/env/v11"
)

// Parse fills target, a pointer to a struct tagged with `env`, `envDefault` and
// `envPrefix`, from the process environment.
func Parse(target any) error {
	if err := cenv.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ParseAs is Parse for a freshly allocated T.
func ParseAs[T any]() (T, error) {
	var cfg T
	if err := Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
