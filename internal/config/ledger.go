package config

import (
	"os"
	"strconv"
	"time"
)

// LedgerConfig holds the tunables of the transfer engine. The retry bound
// and backoff apply only to the atomic balance mutation; every other step
// runs exactly once.
type LedgerConfig struct {
	MaxRetries     int
	RetryBackoff   time.Duration
	IdempotencyTTL time.Duration
	MaxNoteLength  int
}

func LoadLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		MaxRetries:     getEnvAsInt("LEDGER_MAX_RETRIES", 3),
		RetryBackoff:   getEnvAsDuration("LEDGER_RETRY_BACKOFF", 25*time.Millisecond),
		IdempotencyTTL: getEnvAsDuration("LEDGER_IDEMPOTENCY_TTL", 24*time.Hour),
		MaxNoteLength:  getEnvAsInt("LEDGER_MAX_NOTE_LENGTH", 200),
	}
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
