package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	LLMProviderLangChain = "langchain"
	LLMProviderGenAI     = "genai"
)

type Config struct {
	AppEnv     string
	HTTPPort   string
	LogVerbose bool

	StoreDriver string
	DatabaseURL string

	JWTSecret          string
	CORSAllowedOrigins []string

	GeminiAPIKey     string
	LLMProvider      string
	LLMModel         string
	LLMTimeout       time.Duration
	ExtractRateLimit int
	RedisURL         string

	GmailCredentialsFile string
	GmailTokenFile       string

	Timezone            string
	ExportDateLayout    string
	UpcomingHorizonDays int

	// CLI only: the user whose placements the tracker command works on.
	TrackerUserID string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		LogVerbose:           getBool("LOG_VERBOSE", false),
		StoreDriver:          strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS"),
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		LLMProvider:          strings.ToLower(getEnv("LLM_PROVIDER", LLMProviderLangChain)),
		LLMModel:             getEnv("LLM_MODEL", "gemini-2.0-flash"),
		LLMTimeout:           getDuration("LLM_TIMEOUT", 45*time.Second),
		ExtractRateLimit:     getInt("EXTRACT_RATE_LIMIT", 10),
		RedisURL:             getEnv("REDIS_URL", ""),
		GmailCredentialsFile: getEnv("GMAIL_CREDENTIALS_FILE", ""),
		GmailTokenFile:       getEnv("GMAIL_TOKEN_FILE", "token.json"),
		Timezone:             getEnv("TIMEZONE", "Local"),
		ExportDateLayout:     getEnv("EXPORT_DATE_LAYOUT", "1/2/2006"),
		UpcomingHorizonDays:  getInt("UPCOMING_HORIZON_DAYS", 7),
		TrackerUserID:        getEnv("TRACKER_USER_ID", ""),
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	switch c.LLMProvider {
	case LLMProviderLangChain, LLMProviderGenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}
	if c.UpcomingHorizonDays < 0 {
		errs = append(errs, errors.New("UPCOMING_HORIZON_DAYS must not be negative"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) GmailEnabled() bool {
	return c.GmailCredentialsFile != ""
}

// Location resolves TIMEZONE; dates are displayed and compared in it.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getList(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
