package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"remoasset/internal/inbox"
)

type Config struct {
	UserID    string
	Admin     bool
	ConfigDir string
	DBPath    string
	LeadsCSV  string // optional seed file imported at startup

	MaxLeads        int
	ThreadsPerLead  int
	MaxMerged       int
	MetadataBatch   int
	RefreshInterval time.Duration
}

func Load() Config {
	defaults := inbox.DefaultLimits()
	configDir := getEnvString("REMOASSET_CONFIG_DIR", defaultConfigDir())
	return Config{
		UserID:    getEnvString("REMOASSET_USER", ""),
		Admin:     getEnvBool("REMOASSET_ADMIN", false),
		ConfigDir: configDir,
		DBPath:    getEnvString("REMOASSET_DB_PATH", filepath.Join(configDir, "remoasset.db")),
		LeadsCSV:  getEnvString("REMOASSET_LEADS_CSV", ""),

		MaxLeads:        getEnvInt("REMOASSET_MAX_LEADS", defaults.MaxLeads),
		ThreadsPerLead:  getEnvInt("REMOASSET_THREADS_PER_LEAD", defaults.ThreadsPerLead),
		MaxMerged:       getEnvInt("REMOASSET_MAX_MERGED", defaults.MaxMerged),
		MetadataBatch:   getEnvInt("REMOASSET_METADATA_BATCH", defaults.MetadataBatch),
		RefreshInterval: getEnvDuration("REMOASSET_REFRESH_INTERVAL", 2*time.Minute),
	}
}

// Limits maps the configured bounds onto the aggregator's knobs.
func (c Config) Limits() inbox.Limits {
	return inbox.Limits{
		MaxLeads:       c.MaxLeads,
		ThreadsPerLead: c.ThreadsPerLead,
		MaxMerged:      c.MaxMerged,
		MetadataBatch:  c.MetadataBatch,
	}
}

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".remoasset"
	}
	return filepath.Join(home, ".config", "remoasset")
}

func getEnvString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(strings.TrimSpace(value))
		if err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
