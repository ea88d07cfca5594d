// Package config loads service configuration from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Validator is implemented by configuration structs that check their own
// invariants once parsed.
type Validator interface {
	Validate() error
}

// Load fills cfg from the process environment using its `env` and
// `envDefault` tags, then validates it when cfg implements Validator.
func Load(cfg any) error {
	return load(cfg, env.Options{})
}

// LoadFrom is Load over an explicit set of variables instead of the process
// environment.
func LoadFrom(cfg any, environ map[string]string) error {
	if environ == nil {
		environ = map[string]string{}
	}
	return load(cfg, env.Options{Environment: environ})
}

func load(cfg any, opts env.Options) error {
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	return nil
}
