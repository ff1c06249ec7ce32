package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config/config.yaml"

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Mode           string   `yaml:"mode"` // gin mode: debug | release | test
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	// postgres (database/sql + lib/pq) | pgx (pgxpool) | memory
	Driver     string `yaml:"driver"`
	DSN        string `yaml:"url"`
	UsersTable string `yaml:"users_table"`
	MaxConns   int    `yaml:"max_conns"`
	// user ids created on start with the memory driver
	SeedUsers []string `yaml:"seed_users"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	JWTSecret  string `yaml:"jwt_secret"`
	CookieName string `yaml:"cookie_name"`
}

type OTPConfig struct {
	Secret      string        `yaml:"secret"`
	TTL         time.Duration `yaml:"ttl"`
	MaxAttempts int           `yaml:"max_attempts"`
}

type RateLimitConfig struct {
	MaxRequests    int           `yaml:"max_requests"`
	Window         time.Duration `yaml:"window"`
	ResendCooldown time.Duration `yaml:"resend_cooldown"`
	// memory | postgres | redis; empty follows the database driver
	Backend string `yaml:"backend"`
}

type LockConfig struct {
	TTL         time.Duration `yaml:"ttl"`
	WaitTimeout time.Duration `yaml:"wait_timeout"`
}

type BeOnConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
	Sender  string `yaml:"sender"`
	Lang    string `yaml:"lang"`
	DryRun  bool   `yaml:"dry_run"`
}

type VonageConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	From      string `yaml:"from"`
	DryRun    bool   `yaml:"dry_run"`
}

type SMSConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	// prefix -> provider, e.g. "+20": beon. Longest prefix wins.
	Routes          map[string]string `yaml:"routes"`
	DefaultProvider string            `yaml:"default_provider"`
	BeOn            BeOnConfig        `yaml:"beon"`
	Vonage          VonageConfig      `yaml:"vonage"`
}

type CleanupConfig struct {
	Interval       time.Duration `yaml:"interval"` // 0 disables the job
	MaintenanceKey string        `yaml:"maintenance_key"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

type SentryConfig struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	OTP       OTPConfig       `yaml:"otp"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Lock      LockConfig      `yaml:"lock"`
	SMS       SMSConfig       `yaml:"sms"`
	Cleanup   CleanupConfig   `yaml:"cleanup"`
	Log       LogConfig       `yaml:"log"`
	Sentry    SentryConfig    `yaml:"sentry"`
}

// LoadConfig reads CONFIG_PATH (or config/config.yaml) and panics on failure,
// the same contract the server entrypoint has always relied on.
func LoadConfig() *Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := Load(path)
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	return cfg
}

// Load reads the yaml file at path, applies .env and environment overrides,
// fills defaults and validates the result. A missing file is not an error:
// the service can run from environment variables alone.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Database.DSN, "DATABASE_URL")
	setString(&cfg.Database.Driver, "DATABASE_DRIVER")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.OTP.Secret, "OTP_SECRET")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.SMS.BeOn.Token, "BEON_TOKEN")
	setString(&cfg.SMS.Vonage.APIKey, "VONAGE_API_KEY")
	setString(&cfg.SMS.Vonage.APISecret, "VONAGE_API_SECRET")
	setString(&cfg.Sentry.DSN, "SENTRY_DSN")
	setString(&cfg.Cleanup.MaintenanceKey, "MAINTENANCE_KEY")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.UsersTable == "" {
		cfg.Database.UsersTable = "users"
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "access_token"
	}
	if cfg.OTP.TTL <= 0 {
		cfg.OTP.TTL = 10 * time.Minute
	}
	if cfg.OTP.MaxAttempts <= 0 {
		cfg.OTP.MaxAttempts = 5
	}
	if cfg.RateLimit.MaxRequests <= 0 {
		cfg.RateLimit.MaxRequests = 3
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Hour
	}
	if cfg.RateLimit.ResendCooldown <= 0 {
		cfg.RateLimit.ResendCooldown = time.Minute
	}
	if cfg.RateLimit.Backend == "" {
		switch cfg.Database.Driver {
		case "memory":
			cfg.RateLimit.Backend = "memory"
		default:
			cfg.RateLimit.Backend = "postgres"
		}
	}
	if cfg.Lock.TTL <= 0 {
		cfg.Lock.TTL = 15 * time.Second
	}
	if cfg.Lock.WaitTimeout <= 0 {
		cfg.Lock.WaitTimeout = 3 * time.Second
	}
	if cfg.SMS.Timeout <= 0 {
		cfg.SMS.Timeout = 10 * time.Second
	}
	if cfg.SMS.Routes == nil {
		cfg.SMS.Routes = map[string]string{"+20": "beon"}
	}
	if cfg.SMS.DefaultProvider == "" {
		cfg.SMS.DefaultProvider = "vonage"
	}
	if cfg.SMS.BeOn.BaseURL == "" {
		cfg.SMS.BeOn.BaseURL = "https://v3.api.beon.chat"
	}
	if cfg.SMS.BeOn.Lang == "" {
		cfg.SMS.BeOn.Lang = "en"
	}
	if cfg.SMS.Vonage.BaseURL == "" {
		cfg.SMS.Vonage.BaseURL = "https://rest.nexmo.com"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

func (c *Config) Validate() error {
	if c.OTP.Secret == "" {
		return errors.New("otp.secret (OTP_SECRET) is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (JWT_SECRET) is required")
	}
	switch c.Database.Driver {
	case "postgres", "pgx":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.url is required for driver %q", c.Database.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.RateLimit.Backend {
	case "memory", "postgres":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("rate_limit.backend=redis requires redis.addr")
		}
	default:
		return fmt.Errorf("unknown rate limit backend %q", c.RateLimit.Backend)
	}
	if c.RateLimit.Backend == "postgres" && c.Database.Driver == "memory" {
		return errors.New("rate_limit.backend=postgres requires a postgres database driver")
	}
	return c.SMS.validateProviders()
}

// validateProviders requires credentials for every routed provider that is
// not in dry-run mode.
func (s SMSConfig) validateProviders() error {
	used := map[string]bool{s.DefaultProvider: true}
	for _, p := range s.Routes {
		used[p] = true
	}
	if used["beon"] && !s.BeOn.DryRun && s.BeOn.Token == "" {
		return errors.New("sms.beon.token (BEON_TOKEN) is required unless sms.beon.dry_run is set")
	}
	if used["vonage"] && !s.Vonage.DryRun && (s.Vonage.APIKey == "" || s.Vonage.APISecret == "") {
		return errors.New("sms.vonage.api_key and api_secret are required unless sms.vonage.dry_run is set")
	}
	return nil
}
