package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/courseflow-backend/internal/observability"
	"github.com/yungbote/courseflow-backend/internal/platform/envutil"
	"github.com/yungbote/courseflow-backend/internal/platform/logger"
)

type Config struct {
	Env      string `yaml:"env"`
	LogMode  string `yaml:"log_mode"`
	HTTPAddr string `yaml:"http_addr"`

	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Midtrans MidtransConfig `yaml:"midtrans"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`

	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Driver          string `yaml:"driver"`
	Host            string `yaml:"host"`
	Port            string `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Name            string `yaml:"name"`
	SSLMode         string `yaml:"sslmode"`
	SQLitePath      string `yaml:"sqlite_path"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_seconds"`
}

// RedisConfig enables the cross-instance event bus. Empty Addr keeps events in process.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
}

// StorageConfig enables content url resolution. Empty Bucket passes references through.
type StorageConfig struct {
	Bucket           string `yaml:"bucket"`
	CDNDomain        string `yaml:"cdn_domain"`
	PublicBaseURL    string `yaml:"public_base_url"`
	Credentials      string `yaml:"credentials"`
	Mode             string `yaml:"mode"`
	EmulatorHost     string `yaml:"emulator_host"`
	Signed           bool   `yaml:"signed"`
	SignedTTLSeconds int    `yaml:"signed_ttl_seconds"`
}

// MidtransConfig enables checkout. Without ServerKey paid courses cannot be bought.
type MidtransConfig struct {
	ServerKey  string `yaml:"server_key"`
	Production bool   `yaml:"production"`
	Currency   string `yaml:"currency"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	Headers     string  `yaml:"headers"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

func defaultConfig() Config {
	return Config{
		Env:      "development",
		LogMode:  "development",
		HTTPAddr: ":8080",
		Database: DatabaseConfig{
			Driver:  "postgres",
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			Name:    "courseflow",
			SSLMode: "disable",
		},
		Redis:    RedisConfig{Channel: "courseflow:events"},
		Storage:  StorageConfig{SignedTTLSeconds: 900},
		Midtrans: MidtransConfig{Currency: "IDR"},
		Metrics:  MetricsConfig{Addr: ":9090"},
		Tracing:  TracingConfig{ServiceName: "courseflow-api", SampleRatio: 1},
	}
}

// LoadConfig layers defaults, the optional CONFIG_FILE yaml and the environment,
// in that order. A .env file in the working directory is loaded first if present.
func LoadConfig(log *logger.Logger) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := defaultConfig()
	if path := envutil.String("CONFIG_FILE", ""); path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return Config{}, err
		}
		if log != nil {
			log.Info("config file loaded", "path", path)
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("APP_ENV", cfg.Env)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	if port := envutil.String("PORT", ""); port != "" {
		cfg.HTTPAddr = ":" + strings.TrimPrefix(port, ":")
	}
	cfg.HTTPAddr = envutil.String("HTTP_ADDR", cfg.HTTPAddr)

	d := &cfg.Database
	d.Driver = envutil.String("DB_DRIVER", d.Driver)
	d.Host = envutil.String("POSTGRES_HOST", d.Host)
	d.Port = envutil.String("POSTGRES_PORT", d.Port)
	d.User = envutil.String("POSTGRES_USER", d.User)
	d.Password = envutil.String("POSTGRES_PASSWORD", d.Password)
	d.Name = envutil.String("POSTGRES_NAME", d.Name)
	d.SSLMode = envutil.String("POSTGRES_SSLMODE", d.SSLMode)
	d.SQLitePath = envutil.String("SQLITE_PATH", d.SQLitePath)
	d.MaxOpenConns = envutil.Int("DB_MAX_OPEN_CONNS", d.MaxOpenConns)
	d.MaxIdleConns = envutil.Int("DB_MAX_IDLE_CONNS", d.MaxIdleConns)
	d.ConnMaxLifetime = envutil.Int("DB_CONN_MAX_LIFETIME", d.ConnMaxLifetime)

	r := &cfg.Redis
	r.Addr = envutil.String("REDIS_ADDR", r.Addr)
	r.Password = envutil.String("REDIS_PASSWORD", r.Password)
	r.DB = envutil.Int("REDIS_DB", r.DB)
	r.Channel = envutil.String("REDIS_EVENTS_CHANNEL", r.Channel)

	a := &cfg.Auth
	a.JWTSecret = envutil.String("JWT_SECRET_KEY", a.JWTSecret)
	a.Issuer = envutil.String("JWT_ISSUER", a.Issuer)
	a.Audience = envutil.String("JWT_AUDIENCE", a.Audience)

	s := &cfg.Storage
	s.Bucket = envutil.String("CONTENT_GCS_BUCKET_NAME", s.Bucket)
	s.CDNDomain = envutil.String("CONTENT_CDN_DOMAIN", s.CDNDomain)
	s.PublicBaseURL = envutil.String("OBJECT_STORAGE_PUBLIC_BASE_URL", s.PublicBaseURL)
	s.Credentials = envutil.String("GOOGLE_APPLICATION_CREDENTIALS", s.Credentials)
	s.Mode = envutil.String("OBJECT_STORAGE_MODE", s.Mode)
	s.EmulatorHost = envutil.String("STORAGE_EMULATOR_HOST", s.EmulatorHost)
	s.Signed = envutil.Bool("CONTENT_SIGNED_URLS", s.Signed)
	s.SignedTTLSeconds = envutil.Int("CONTENT_SIGNED_URL_TTL", s.SignedTTLSeconds)

	m := &cfg.Midtrans
	m.ServerKey = envutil.String("MIDTRANS_SERVER_KEY", m.ServerKey)
	m.Production = envutil.Bool("MIDTRANS_PRODUCTION", m.Production)
	m.Currency = envutil.String("PAYMENT_CURRENCY", m.Currency)

	cfg.Metrics.Enabled = envutil.Bool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Addr = envutil.String("METRICS_ADDR", cfg.Metrics.Addr)

	t := &cfg.Tracing
	t.Enabled = envutil.Bool("OTEL_ENABLED", t.Enabled)
	t.ServiceName = envutil.String("OTEL_SERVICE_NAME", t.ServiceName)
	t.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", t.Endpoint)
	t.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", t.Headers)
	t.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", t.Insecure)

	cfg.CORSOrigins = envutil.List("CORS_ALLOWED_ORIGINS", cfg.CORSOrigins)
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("JWT_SECRET_KEY is required")
	}
	if c.IsProduction() && len(c.Auth.JWTSecret) < 32 {
		return errors.New("JWT_SECRET_KEY must be at least 32 bytes in production")
	}
	if c.Storage.Signed && c.Storage.SignedTTLSeconds <= 0 {
		return errors.New("CONTENT_SIGNED_URL_TTL must be positive when signed urls are enabled")
	}
	return nil
}

func (c Config) IsProduction() bool {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "prod", "production":
		return true
	}
	return false
}

func (c Config) otel() observability.OtelConfig {
	return observability.OtelConfig{
		Enabled:     c.Tracing.Enabled,
		ServiceName: c.Tracing.ServiceName,
		Environment: c.Env,
		Endpoint:    c.Tracing.Endpoint,
		Headers:     observability.ParseHeaders(c.Tracing.Headers),
		Insecure:    c.Tracing.Insecure,
		SampleRatio: c.Tracing.SampleRatio,
	}
}

func (c DatabaseConfig) lifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetime) * time.Second
}
