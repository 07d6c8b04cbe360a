package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr    string
	DataDir string
	Seed    bool
	Auth    AuthConfig
	Log     LogConfig
}

type AuthConfig struct {
	// TestPassword is the shared password of the seeded test accounts.
	TestPassword string
	SessionTTL   time.Duration
	JWTSecret    string
	BcryptCost   int
}

type LogConfig struct {
	Level string
	// File enables rotated file output when set; stdout otherwise.
	File string
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

// LoadDotEnv reads .env files into the process environment. A missing file is
// not an error.
func LoadDotEnv(files ...string) error {
	err := godotenv.Load(files...)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Load builds the configuration from flags and environment. Environment values
// override the flag defaults.
func Load(flagAddr, flagDataDir string) Config {
	return Config{
		Addr:    getEnv("SPARKMATES_ADDR", flagAddr),
		DataDir: getEnv("SPARKMATES_DATA_DIR", flagDataDir),
		Seed:    !strings.EqualFold(getEnv("SPARKMATES_SEED", "true"), "false"),
		Auth: AuthConfig{
			TestPassword: getEnv("SPARKMATES_TEST_PASSWORD", "password"),
			SessionTTL:   getEnvDuration("SPARKMATES_SESSION_TTL", 30*24*time.Hour),
			JWTSecret:    getEnv("SPARKMATES_JWT_SECRET", "sparkmates-dev-secret"),
			BcryptCost:   getEnvInt("SPARKMATES_BCRYPT_COST", 10),
		},
		Log: LogConfig{
			Level: getEnv("SPARKMATES_LOG_LEVEL", "info"),
			File:  getEnv("SPARKMATES_LOG_FILE", ""),
		},
	}
}
