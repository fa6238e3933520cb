// Package config reads and validates the startup flags described in
// spec §6, following the teacher's requireEnv/getEnvOrDefault idiom
// from its cmd/engine/main.go rather than a flag-parsing library —
// the teacher never imported one, and these are few enough knobs that
// a CLI framework would add a dependency with no corresponding need.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/rawblock/ordinal-index/internal/flow"
)

// Config holds every startup flag read once at process start.
type Config struct {
	DatabaseURL string

	BTCRPCHost string
	BTCRPCUser string
	BTCRPCPass string

	Port           string
	APIAuthToken   string
	AllowedOrigins string

	EnableIndex      bool
	PruneMode        bool
	RewriteSpentMode bool
	PruneHorizon     int32
}

// Load reads configuration from the environment and validates the
// mode flags. A misconfigured prune/rewrite-spent combination is a
// startup error (spec §6), not a runtime one.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL: requireEnv("DATABASE_URL"),

		BTCRPCHost: getEnvOrDefault("BTC_RPC_HOST", "localhost:8332"),
		BTCRPCUser: requireEnv("BTC_RPC_USER"),
		BTCRPCPass: requireEnv("BTC_RPC_PASS"),

		Port:           getEnvOrDefault("PORT", "5339"),
		APIAuthToken:   os.Getenv("API_AUTH_TOKEN"),
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),

		EnableIndex:      getEnvBool("ENABLE_INDEX", false),
		PruneMode:        getEnvBool("PRUNE_MODE", false),
		RewriteSpentMode: getEnvBool("REWRITE_SPENT_MODE", false),
		PruneHorizon:     getEnvInt32("PRUNE_HORIZON", 6),
	}

	if cfg.PruneMode && cfg.RewriteSpentMode {
		return Config{}, flow.ErrBothModesEnabled
	}

	return cfg, nil
}

// Mode derives the flow engine's retention policy from the two
// mutually exclusive boolean flags.
func (c Config) Mode() flow.Mode {
	switch {
	case c.PruneMode:
		return flow.ModePrune
	case c.RewriteSpentMode:
		return flow.ModeRewriteSpent
	default:
		return flow.ModeFull
	}
}

// requireEnv reads a required environment variable and exits if it is
// not set; the process should not start with missing critical
// configuration.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: required environment variable %s is not set", key)
	}
	return val
}

// getEnvOrDefault returns the env var value or a safe default for
// non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		log.Printf("config: invalid bool for %s=%q, using default %v", key, val, fallback)
		return fallback
	}
	return b
}

func getEnvInt32(key string, fallback int32) int32 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.ParseInt(val, 10, 32)
	if err != nil {
		log.Printf("config: invalid int for %s=%q, using default %v", key, val, fallback)
		return fallback
	}
	return int32(n)
}
