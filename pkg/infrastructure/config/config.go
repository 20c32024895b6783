// Package config loads ledger settings from an optional .env file and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/vsinha/glassledger/pkg/domain/entities"
	"github.com/vsinha/glassledger/pkg/infrastructure/logger"
)

// Store backends
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds the runtime settings of the ledger
type Config struct {
	Store     string
	DSN       string
	LogMode   string
	Tolerance entities.Quantity
}

// Default returns the settings used when nothing is configured
func Default() Config {
	return Config{
		Store:     StoreMemory,
		LogMode:   "dev",
		Tolerance: entities.QuantityTolerance,
	}
}

// Load reads files (".env" when none are given) into the environment and
// builds a Config from it. Missing files are ignored; variables already set
// in the environment win over file values.
func Load(log *logger.Logger, files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if os.IsNotExist(err) {
				log.Debug("No env file found, using environment", "file", file)
				continue
			}
			return Config{}, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	defaults := Default()
	cfg := Config{
		Store:   strings.ToLower(GetEnv("LEDGER_STORE", defaults.Store, log)),
		DSN:     GetEnv("LEDGER_DSN", defaults.DSN, log),
		LogMode: GetEnv("LEDGER_LOG_MODE", defaults.LogMode, log),
		Tolerance: entities.Quantity(
			GetEnvAsFloat("LEDGER_TOLERANCE", float64(defaults.Tolerance), log),
		),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the settings are usable
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.DSN == "" {
			return fmt.Errorf("LEDGER_DSN is required for the postgres store")
		}
	default:
		return fmt.Errorf("unsupported store: %s", c.Store)
	}
	if !c.Tolerance.IsFinite() || c.Tolerance < 0 {
		return fmt.Errorf("tolerance must be a non-negative number, got %v", float64(c.Tolerance))
	}
	return nil
}

// GetEnv returns the value of key or defaultVal when it is unset
func GetEnv(key, defaultVal string, log *logger.Logger) string {
	log = log.With("env_var", key)
	val, ok := os.LookupEnv(key)
	if !ok {
		log.Debug("Environment variable not found, using default", "default", defaultVal)
		return defaultVal
	}
	log.Debug("Environment variable found, using environment", "environment", val)
	return val
}

// GetEnvAsFloat returns key parsed as a float, or defaultVal when it is
// unset or unparsable
func GetEnvAsFloat(key string, defaultVal float64, log *logger.Logger) float64 {
	log = log.With("env_var", key)
	valStr, ok := os.LookupEnv(key)
	if !ok {
		log.Debug("Environment variable not found, using default", "default", defaultVal)
		return defaultVal
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(valStr), 64)
	if err != nil {
		log.Warn("Environment variable could not be parsed as float, using default", "providedVal", valStr, "defaultVal", defaultVal, "error", err)
		return defaultVal
	}
	return f
}
