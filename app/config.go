// Package app loads configuration and assembles the session service for the binaries.
package app

import (
	"errors"
	"fmt"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"nutribudget"
)

type Config struct {
	Model      nutribudget.ModelConfig
	Capability nutribudget.CapabilityConfig
	Session    nutribudget.SessionConfig
	Storage    nutribudget.StorageConfig
	Notify     nutribudget.NotifyConfig
}

// LoadConfig reads an optional .env file, then decodes every section from the environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	for _, target := range []any{&cfg.Model, &cfg.Capability, &cfg.Session, &cfg.Storage, &cfg.Notify} {
		if err := Decode(target); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// Decode is envdecode.Decode that accepts sections with no variables set.
func Decode(target any) error {
	if err := envdecode.Decode(target); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("failed to decode %T: %w", target, err)
	}
	return nil
}
