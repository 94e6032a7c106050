package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/soaringjerry/quizly/internal/utils"
)

const DevJWTSecret = "devsecret-change-me"

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type Config struct {
	Server struct {
		Addr        string   `yaml:"addr"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Store struct {
		Kind          string `yaml:"kind"`
		SQLitePath    string `yaml:"sqlite_path"`
		PostgresURL   string `yaml:"postgres_url"`
		MigrationsDir string `yaml:"migrations_dir"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Quiz struct {
		StrictChoices bool `yaml:"strict_choices"`
	} `yaml:"quiz"`
	Build struct {
		Commit    string `yaml:"commit"`
		BuildTime string `yaml:"build_time"`
	} `yaml:"build"`
}

func defaults() Config {
	var cfg Config
	cfg.Server.Addr = ":8080"
	cfg.Auth.JWTSecret = DevJWTSecret
	cfg.Auth.TokenTTL = "168h"
	cfg.Store.Kind = StoreMemory
	cfg.Store.SQLitePath = "data/quizly.db"
	cfg.Redis.TTL = "10m"
	return cfg
}

// Load builds the configuration from defaults, then the optional YAML file at
// path, then a .env file in the working directory, then QUIZLY_* variables.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Printf("config: %s not found, using defaults and environment", path)
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := godotenv.Load(); err == nil {
		log.Printf("config: loaded .env")
	}
	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	cfg.Server.Addr = utils.SafeEnv("QUIZLY_ADDR", cfg.Server.Addr)
	if origins := utils.SafeEnv("QUIZLY_CORS_ORIGINS", ""); origins != "" {
		cfg.Server.CORSOrigins = splitList(origins)
	}
	cfg.Auth.JWTSecret = utils.SafeEnv("QUIZLY_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTL = utils.SafeEnv("QUIZLY_TOKEN_TTL", cfg.Auth.TokenTTL)
	cfg.Store.Kind = strings.ToLower(utils.SafeEnv("QUIZLY_STORE", cfg.Store.Kind))
	cfg.Store.SQLitePath = utils.SafeEnv("QUIZLY_SQLITE_PATH", cfg.Store.SQLitePath)
	cfg.Store.PostgresURL = utils.SafeEnv("QUIZLY_POSTGRES_URL", cfg.Store.PostgresURL)
	cfg.Store.MigrationsDir = utils.SafeEnv("QUIZLY_MIGRATIONS_DIR", cfg.Store.MigrationsDir)
	cfg.Redis.Addr = utils.SafeEnv("QUIZLY_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = utils.SafeEnv("QUIZLY_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = utils.SafeEnvInt("QUIZLY_REDIS_DB", cfg.Redis.DB)
	cfg.Redis.TTL = utils.SafeEnv("QUIZLY_CACHE_TTL", cfg.Redis.TTL)
	cfg.Quiz.StrictChoices = utils.SafeEnvBool("QUIZLY_STRICT_CHOICES", cfg.Quiz.StrictChoices)
	cfg.Build.Commit = utils.SafeEnv("QUIZLY_COMMIT", cfg.Build.Commit)
	cfg.Build.BuildTime = utils.SafeEnv("QUIZLY_BUILD_TIME", cfg.Build.BuildTime)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c Config) Validate() error {
	switch c.Store.Kind {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			return errors.New("config: sqlite store needs a sqlite path")
		}
	case StorePostgres:
		if strings.TrimSpace(c.Store.PostgresURL) == "" {
			return errors.New("config: postgres store needs QUIZLY_POSTGRES_URL")
		}
	default:
		return fmt.Errorf("config: unknown store kind %q", c.Store.Kind)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("config: jwt secret must not be empty")
	}
	for name, raw := range map[string]string{"token_ttl": c.Auth.TokenTTL, "redis.ttl": c.Redis.TTL} {
		if raw == "" {
			continue
		}
		if d, err := time.ParseDuration(raw); err != nil || d <= 0 {
			return fmt.Errorf("config: %s must be a positive duration, got %q", name, raw)
		}
	}
	return nil
}

// TokenTTL returns the parsed token lifetime, or seven days when unset.
func (c Config) TokenTTL() time.Duration {
	return TTLDuration(c.Auth.TokenTTL, 7*24*time.Hour)
}

func (c Config) CacheTTL() time.Duration {
	return TTLDuration(c.Redis.TTL, 10*time.Minute)
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
