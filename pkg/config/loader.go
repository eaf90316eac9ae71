// Package config parses environment-variable configuration into tagged
// structs.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct pointer.
// Fields use `env` tags; `,required` marks variables that have no sane
// default, like SESSION_SECRET.
//
// Example:
//
//	type Config struct {
//	    HTTPPort      int    `env:"HTTP_PORT" envDefault:"8080"`
//	    SessionSecret string `env:"SESSION_SECRET,required"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
