package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidBaseURL     = errors.New("API_BASE_URL must be an absolute http(s) url")
	ErrInvalidPort        = errors.New("invalid server port")
	ErrInvalidStoreType   = errors.New("TASK_STORE must be memory or postgres")
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required for the postgres task store")
)

const DefaultBaseURL = "https://law-api-poc.stage.lexmachina.com"

type Config struct {
	Server        ServerConfig
	API           APIConfig
	Auth          AuthConfig
	Enrich        EnrichConfig
	Log           LogConfig
	RateLimit     RateLimitConfig
	Store         StoreConfig
	AgentCardFile string
}

type ServerConfig struct {
	Host           string
	Port           int
	TrustedProxies []string
}

type APIConfig struct {
	BaseURL  string
	TokenURL string
	Timeout  time.Duration
}

// AuthConfig holds the raw credential inputs. Which one is used is decided
// by credential.Resolve, not here.
type AuthConfig struct {
	Token         string
	ClientID      string
	ClientSecret  string
	DelegationURL string
}

type EnrichConfig struct {
	MaxConcurrency     int
	RateLimitRPS       float64
	DescriptionTimeout time.Duration
}

type LogConfig struct {
	Level string
	File  LogFileConfig
}

type LogFileConfig struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type StoreConfig struct {
	Type        string
	DatabaseURL string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnvOrDefault("HOST", "localhost"),
			Port:           getEnvIntOrDefault("PORT", 10011),
			TrustedProxies: getEnvList("TRUSTED_PROXIES"),
		},
		API: APIConfig{
			BaseURL:  strings.TrimRight(getEnvOrDefault("API_BASE_URL", DefaultBaseURL), "/"),
			TokenURL: getEnv("API_TOKEN_URL"),
			Timeout:  time.Duration(getEnvIntOrDefault("HTTP_TIMEOUT_SEC", 30)) * time.Second,
		},
		Auth: AuthConfig{
			Token:         getEnv("API_TOKEN"),
			ClientID:      getEnv("CLIENT_ID"),
			ClientSecret:  getEnv("CLIENT_SECRET"),
			DelegationURL: getEnv("DELEGATION_URL"),
		},
		Enrich: EnrichConfig{
			MaxConcurrency:     getEnvIntOrDefault("ENRICH_MAX_CONCURRENCY", 0),
			RateLimitRPS:       getEnvFloatOrDefault("ENRICH_RATE_LIMIT_RPS", 0),
			DescriptionTimeout: time.Duration(getEnvIntOrDefault("DESCRIPTION_TIMEOUT_SEC", 15)) * time.Second,
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
			File: LogFileConfig{
				Filename:   getEnv("LOG_FILE"),
				MaxSizeMB:  getEnvIntOrDefault("LOG_FILE_MAX_SIZE_MB", 100),
				MaxBackups: getEnvIntOrDefault("LOG_FILE_MAX_BACKUPS", 5),
				MaxAgeDays: getEnvIntOrDefault("LOG_FILE_MAX_AGE_DAYS", 30),
				Compress:   getEnvBool("LOG_FILE_COMPRESS"),
			},
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", 60),
		},
		Store: StoreConfig{
			Type:        strings.ToLower(getEnvOrDefault("TASK_STORE", "memory")),
			DatabaseURL: getEnv("DATABASE_URL"),
		},
		AgentCardFile: getEnv("AGENT_CARD_FILE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return ErrInvalidPort
	}
	switch c.Store.Type {
	case "memory":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return ErrInvalidStoreType
	}
	return nil
}

// TokenEndpoint is the OAuth2 token URL, defaulting to {base}/api/token.
func (c APIConfig) TokenEndpoint() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	return strings.TrimRight(c.BaseURL, "/") + "/api/token"
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := getEnv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := getEnv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := getEnv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvBool(key string) bool {
	b, _ := strconv.ParseBool(getEnv(key))
	return b
}
