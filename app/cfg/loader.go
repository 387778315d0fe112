package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBDriver   string `long:"db-driver" env:"DB_DRIVER" default:"postgres" choice:"postgres" choice:"sqlite" description:"Database driver"`
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"social_user" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" description:"Database password (required for postgres)"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"social_media" description:"Database name"`
	DBSSLMode  string `long:"db-sslmode" env:"DB_SSLMODE" default:"disable" description:"PostgreSQL sslmode"`
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./social_posts.db" description:"SQLite database file"`

	// Platform credentials
	XBearerToken  string `long:"x-bearer-token" env:"X_BEARER_TOKEN" description:"Bearer token for the X recent search API"`
	YouTubeAPIKey string `long:"youtube-api-key" env:"YOUTUBE_API_KEY" description:"API key for the YouTube Data API"`

	// Sources
	SourcesFile    string `long:"sources-file" env:"SOURCES_FILE" description:"Optional YAML file with per-platform query settings"`
	RequestTimeout int    `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"30" description:"Timeout for each platform request in seconds"`
	UserAgent      string `long:"user-agent" env:"USER_AGENT" default:"SocialMediaAnalytics/1.0" description:"User agent string for HTTP requests"`

	// Run driver
	RunInterval int  `long:"run-interval" env:"RUN_INTERVAL" default:"900" description:"Interval between ingestion runs in seconds"`
	RunRetries  int  `long:"run-retries" env:"RUN_RETRIES" default:"2" description:"Retries for a failed run"`
	RetryDelay  int  `long:"retry-delay" env:"RETRY_DELAY" default:"300" description:"Delay between run retries in seconds"`
	RunOnce     bool `long:"run-once" env:"RUN_ONCE" description:"Run one ingestion and exit"`
	RunTimeout  int  `long:"run-timeout" env:"RUN_TIMEOUT" default:"600" description:"Timeout for a single run attempt in seconds"`

	// Surfaces
	Port          string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey  string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	RedisAddr     string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the shared run lock (optional)"`
	RedisPassword string `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`
	NatsURL       string `long:"nats-url" env:"NATS_URL" description:"NATS server URL for run events (optional)"`
	NatsSubject   string `long:"nats-subject" env:"NATS_SUBJECT" default:"social.posts.stored" description:"NATS subject for run events"`
	OtelEndpoint  string `long:"otel-endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" description:"OTLP gRPC endpoint (empty disables export)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load reads .env (if present), the environment and command line flags.
// It returns nil, nil when help was requested.
func Load() (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg, err := LoadArgs(os.Args[1:])
	if err != nil || cfg == nil {
		return cfg, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	globalCfg = cfg

	return cfg, nil
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBDriver:       raw.DBDriver,
		DBHost:         raw.DBHost,
		DBPort:         raw.DBPort,
		DBUser:         raw.DBUser,
		DBPassword:     raw.DBPassword,
		DBName:         raw.DBName,
		DBSSLMode:      raw.DBSSLMode,
		DBPath:         raw.DBPath,
		XBearerToken:   raw.XBearerToken,
		YouTubeAPIKey:  raw.YouTubeAPIKey,
		SourcesFile:    raw.SourcesFile,
		RequestTimeout: raw.RequestTimeout,
		UserAgent:      raw.UserAgent,
		RunInterval:    raw.RunInterval,
		RunRetries:     raw.RunRetries,
		RetryDelay:     raw.RetryDelay,
		RunOnce:        raw.RunOnce,
		RunTimeout:     raw.RunTimeout,
		Port:           raw.Port,
		APIAccessKey:   raw.APIAccessKey,
		RedisAddr:      raw.RedisAddr,
		RedisPassword:  raw.RedisPassword,
		NatsURL:        raw.NatsURL,
		NatsSubject:    raw.NatsSubject,
		OtelEndpoint:   raw.OtelEndpoint,
		Timezone:       raw.Timezone,
		Debug:          raw.Debug,
		Version:        GetVersion(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Cfg) Validate() error {
	var errs []error

	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver))
	}
	if c.DBDriver == "postgres" && c.DBPassword == "" {
		errs = append(errs, errors.New("DB_PASSWORD is required for postgres"))
	}
	if c.DBDriver == "sqlite" && c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH is required for sqlite"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %d", c.RequestTimeout))
	}
	if c.RunInterval <= 0 {
		errs = append(errs, fmt.Errorf("RUN_INTERVAL must be positive, got %d", c.RunInterval))
	}
	if c.RunRetries < 0 {
		errs = append(errs, fmt.Errorf("RUN_RETRIES must not be negative, got %d", c.RunRetries))
	}
	if c.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("RETRY_DELAY must not be negative, got %d", c.RetryDelay))
	}
	if c.RunTimeout <= 0 {
		errs = append(errs, fmt.Errorf("RUN_TIMEOUT must be positive, got %d", c.RunTimeout))
	}

	return errors.Join(errs...)
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return err
		}
		time.Local = loc
	}
	return nil
}
