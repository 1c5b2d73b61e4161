package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const DefaultSource = "https://www.eventbrite.com/d/australia--sydney/all-events/"

type Config struct {
	HTTPAddr      string `envconfig:"HTTP_ADDR" default:":8000"`
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"postgres"`
	DBConnString  string `envconfig:"DATABASE_URL" default:"postgres://localhost:5432/louder"`
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPass     string `envconfig:"REDIS_PASS"`

	ScrapeInterval    time.Duration `envconfig:"SCRAPE_INTERVAL" default:"1h"`
	ScrapeOnStart     bool          `envconfig:"SCRAPE_ON_START" default:"true"`
	PurgePastEvents   bool          `envconfig:"PURGE_PAST_EVENTS" default:"true"`
	ScrapeSources     []string      `envconfig:"SCRAPE_SOURCES"`
	SourcesFile       string        `envconfig:"SOURCES_FILE"`
	SourceConcurrency int           `envconfig:"SOURCE_CONCURRENCY" default:"2"`
	MaxPages          int           `envconfig:"MAX_PAGES" default:"0"`
	FetchTimeout      time.Duration `envconfig:"FETCH_TIMEOUT" default:"15s"`
	UserAgent         string        `envconfig:"USER_AGENT" default:"Mozilla/5.0 (compatible; louder-bot/1.0)"`

	OTP_TTL          time.Duration `envconfig:"OTP_TTL" default:"300s"`
	OTP_Length       int           `envconfig:"OTP_LENGTH" default:"6"`
	OTP_Window       time.Duration `envconfig:"OTP_WINDOW" default:"10m"`
	OTP_MaxPerWindow int           `envconfig:"OTP_MAX_PER_WINDOW" default:"5"`
	OTP_Cooldown     time.Duration `envconfig:"OTP_COOLDOWN" default:"45s"`

	SMTPHost string `envconfig:"SMTP_HOST"`
	SMTPPort int    `envconfig:"SMTP_PORT" default:"465"`
	SMTPUser string `envconfig:"SMTP_USER"`
	SMTPPass string `envconfig:"SMTP_PASS"`
	SMTPFrom string `envconfig:"SMTP_FROM"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`
	AdminToken  string   `envconfig:"ADMIN_TOKEN"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Sources is resolved from SOURCES_FILE, or SCRAPE_SOURCES when no file is set.
	Sources []SourceConfig `ignored:"true"`
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("louder: no .env file found, relying on system env vars")
	}
	return FromEnv()
}

// FromEnv decodes the environment without touching .env files.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode env: %w", err)
	}
	sources, err := cfg.resolveSources()
	if err != nil {
		return Config{}, err
	}
	cfg.Sources = sources
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) resolveSources() ([]SourceConfig, error) {
	if c.SourcesFile != "" {
		sources, err := LoadSources(c.SourcesFile)
		if err != nil {
			return nil, err
		}
		return applySourceDefaults(sources, c.MaxPages), nil
	}
	origins := c.ScrapeSources
	if len(origins) == 0 {
		origins = []string{DefaultSource}
	}
	sources := make([]SourceConfig, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		sources = append(sources, SourceConfig{Origin: o})
	}
	return applySourceDefaults(sources, c.MaxPages), nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case "postgres":
		if c.DBConnString == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORAGE_DRIVER=postgres"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be postgres or memory, got %q", c.StorageDriver))
	}
	if c.ScrapeInterval <= 0 {
		errs = append(errs, errors.New("SCRAPE_INTERVAL must be positive"))
	}
	if c.SourceConcurrency < 1 {
		errs = append(errs, errors.New("SOURCE_CONCURRENCY must be at least 1"))
	}
	if c.MaxPages < 0 {
		errs = append(errs, errors.New("MAX_PAGES must not be negative"))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, errors.New("FETCH_TIMEOUT must be positive"))
	}
	if c.OTP_TTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}
	if c.OTP_Length < 4 || c.OTP_Length > 10 {
		errs = append(errs, errors.New("OTP_LENGTH must be between 4 and 10"))
	}
	if c.OTP_MaxPerWindow < 1 {
		errs = append(errs, errors.New("OTP_MAX_PER_WINDOW must be at least 1"))
	}
	if c.SMTPHost != "" && c.SMTPFrom == "" {
		errs = append(errs, errors.New("SMTP_FROM is required when SMTP_HOST is set"))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}
	if len(c.Sources) == 0 {
		errs = append(errs, errors.New("no scrape sources configured"))
	}
	for i, s := range c.Sources {
		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("source %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (c Config) RateLimitEnabled() bool {
	return c.RedisAddr != ""
}

func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}
