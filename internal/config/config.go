// Package config loads and validates simulation configuration from environment variables.
//
// This package configures cmd/iblsim, the example driver. The ibl engine
// itself takes no environment configuration — it is constructed entirely
// through functional options (see Option in the root package).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds cmd/iblsim's simulation parameters.
type Config struct {
	Seed        int64   // PRNG seed; 0 means "derive from time" at the call site.
	Rounds      int     // Decisions per participant.
	Participants int    // Number of independent agents to simulate.
	Noise       float64 // Activation noise (sigma).
	Decay       float64 // Base-level learning decay (d).
	DefaultUtility float64

	OTELEndpoint string // Empty disables telemetry export.
	ServiceName  string
	LogLevel     string
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if any environment variable contains an unparseable value.
func Load() (Config, error) {
	var errs []error
	cfg := Config{
		OTELEndpoint: envStr("IBLSIM_OTEL_ENDPOINT", ""),
		ServiceName:  envStr("OTEL_SERVICE_NAME", "iblsim"),
		LogLevel:     envStr("IBLSIM_LOG_LEVEL", "info"),
	}

	var seed int
	seed, errs = collectInt(errs, "IBLSIM_SEED", 0)
	cfg.Seed = int64(seed)
	cfg.Rounds, errs = collectInt(errs, "IBLSIM_ROUNDS", 50)
	cfg.Participants, errs = collectInt(errs, "IBLSIM_PARTICIPANTS", 80)

	cfg.Noise, errs = collectFloat(errs, "IBLSIM_NOISE", 0.25)
	cfg.Decay, errs = collectFloat(errs, "IBLSIM_DECAY", 0.5)
	cfg.DefaultUtility, errs = collectFloat(errs, "IBLSIM_DEFAULT_UTILITY", 10)

	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return Config{}, fmt.Errorf("config: invalid environment variables:\n  %s", strings.Join(msgs, "\n  "))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// collectInt parses an int env var, appending any error to the accumulator.
func collectInt(errs []error, key string, fallback int) (int, []error) {
	v, err := envInt(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// collectFloat parses a float env var, appending any error to the accumulator.
func collectFloat(errs []error, key string, fallback float64) (float64, []error) {
	v, err := envFloat(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// Validate checks that the loaded configuration is sane.
func (c Config) Validate() error {
	var errs []error

	if c.Rounds <= 0 {
		errs = append(errs, errors.New("config: IBLSIM_ROUNDS must be positive"))
	}
	if c.Participants <= 0 {
		errs = append(errs, errors.New("config: IBLSIM_PARTICIPANTS must be positive"))
	}
	if c.Noise < 0 {
		errs = append(errs, errors.New("config: IBLSIM_NOISE must be non-negative"))
	}
	if c.Decay < 0 {
		errs = append(errs, errors.New("config: IBLSIM_DECAY must be non-negative"))
	}

	return errors.Join(errs...)
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid float", key, v)
	}
	return f, nil
}
