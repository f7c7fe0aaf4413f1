package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileEnv names the optional YAML config file.
const FileEnv = "BILLOPTIMIZER_CONFIG"

type Config struct {
	Port       string `yaml:"port" env:"PORT"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL"`
	TariffFile string `yaml:"tariff_file" env:"BILLOPTIMIZER_TARIFF_FILE"`

	DB    DBConfig    `yaml:"db"`
	Cache CacheConfig `yaml:"cache"`
	Auth  AuthConfig  `yaml:"auth"`
	Email EmailConfig `yaml:"email"`
	Cron  CronConfig  `yaml:"cron"`
	Alert AlertConfig `yaml:"alert"`
}

type DBConfig struct {
	// Driver is one of "memory", "sqlite" or "postgres".
	Driver      string `yaml:"driver" env:"BILLOPTIMIZER_DB_DRIVER"`
	DSN         string `yaml:"dsn" env:"BILLOPTIMIZER_DB_DSN"`
	AutoMigrate bool   `yaml:"auto_migrate" env:"BILLOPTIMIZER_AUTO_MIGRATE"`
}

type CacheConfig struct {
	// Driver is one of "memory", "redis" or "none".
	Driver        string `yaml:"driver" env:"BILLOPTIMIZER_CACHE_DRIVER"`
	RedisAddr     string `yaml:"redis_addr" env:"BILLOPTIMIZER_REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"BILLOPTIMIZER_REDIS_PASSWORD"`
	TTL           string `yaml:"ttl" env:"BILLOPTIMIZER_CACHE_TTL"`
}

type AuthConfig struct {
	SessionTTL    string `yaml:"session_ttl" env:"BILLOPTIMIZER_SESSION_TTL"`
	ResetTTL      string `yaml:"reset_ttl" env:"BILLOPTIMIZER_RESET_TTL"`
	ResetURL      string `yaml:"reset_url" env:"BILLOPTIMIZER_RESET_URL"`
	AdminEmail    string `yaml:"admin_email" env:"BILLOPTIMIZER_ADMIN_EMAIL"`
	AdminPassword string `yaml:"admin_password" env:"BILLOPTIMIZER_ADMIN_PASSWORD"`
}

type EmailConfig struct {
	// Provider is one of "sendgrid", "smtp" or "log".
	Provider    string `yaml:"provider" env:"BILLOPTIMIZER_EMAIL_PROVIDER"`
	Host        string `yaml:"host" env:"BILLOPTIMIZER_SMTP_HOST"`
	Port        int    `yaml:"port" env:"BILLOPTIMIZER_SMTP_PORT"`
	Username    string `yaml:"username" env:"BILLOPTIMIZER_SMTP_USERNAME"`
	Password    string `yaml:"password" env:"BILLOPTIMIZER_SMTP_PASSWORD"`
	Encryption  string `yaml:"encryption" env:"BILLOPTIMIZER_SMTP_ENCRYPTION"`
	APIKey      string `yaml:"api_key" env:"SENDGRID_API_KEY"`
	FromAddress string `yaml:"from_address" env:"BILLOPTIMIZER_EMAIL_FROM"`
	FromName    string `yaml:"from_name" env:"BILLOPTIMIZER_EMAIL_FROM_NAME"`
}

type CronConfig struct {
	CleanupSchedule string `yaml:"cleanup_schedule" env:"BILLOPTIMIZER_CLEANUP_SCHEDULE"`
}

type AlertConfig struct {
	WebhookURL  string `yaml:"webhook_url" env:"ALERT_WEBHOOK_URL"`
	WebhookType string `yaml:"webhook_type" env:"ALERT_WEBHOOK_TYPE"`
	MinFailures int    `yaml:"min_failures" env:"ALERT_MIN_FAILURES"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:     "8000",
		LogLevel: "info",
		DB: DBConfig{
			Driver: "memory",
		},
		Cache: CacheConfig{
			Driver: "memory",
			TTL:    "10m",
		},
		Auth: AuthConfig{
			SessionTTL: "7d",
			ResetTTL:   "24h",
			ResetURL:   "http://localhost:8000/reset-password",
		},
		Email: EmailConfig{
			Provider:    "log",
			Port:        587,
			Encryption:  "tls",
			FromAddress: "no-reply@billoptimizer.local",
			FromName:    "Bill Optimizer",
		},
		Cron: CronConfig{
			CleanupSchedule: "@hourly",
		},
		Alert: AlertConfig{
			MinFailures: 1,
		},
	}
}

// Load builds a Config from defaults, the optional YAML file named by
// BILLOPTIMIZER_CONFIG, and finally environment variables.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := populateFromEnv(reflect.ValueOf(&cfg).Elem()); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects combinations the server cannot start with.
func (c Config) Validate() error {
	switch c.DB.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("config: %s driver needs BILLOPTIMIZER_DB_DSN", c.DB.Driver)
		}
	default:
		return fmt.Errorf("config: unsupported db driver %q", c.DB.Driver)
	}
	switch c.Cache.Driver {
	case "memory", "none":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return errors.New("config: redis cache needs BILLOPTIMIZER_REDIS_ADDR")
		}
	default:
		return fmt.Errorf("config: unsupported cache driver %q", c.Cache.Driver)
	}
	if (c.Auth.AdminEmail == "") != (c.Auth.AdminPassword == "") {
		return errors.New("config: admin email and password must be set together")
	}
	return nil
}

func loadFromFile(path string, target *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read file: %w", err)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

func populateFromEnv(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		fieldVal := v.Field(i)
		fieldType := t.Field(i)

		if fieldVal.Kind() == reflect.Struct {
			if err := populateFromEnv(fieldVal); err != nil {
				return err
			}
			continue
		}

		key := fieldType.Tag.Get("env")
		if key == "" || key == "-" {
			continue
		}
		if val, ok := os.LookupEnv(key); ok {
			if err := assign(fieldVal, val); err != nil {
				return fmt.Errorf("config: parse %s: %w", key, err)
			}
		}
	}
	return nil
}

func assign(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		field.SetBool(parsed)
	case reflect.Int, reflect.Int64:
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(parsed)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type().String())
	}
	return nil
}
