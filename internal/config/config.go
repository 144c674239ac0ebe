// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverCSV      = "csv"
	DriverPostgres = "postgres"
)

type Database struct {
	URL      string
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

// SMTP is the fallback sender used by the immediate send path.
type SMTP struct {
	Server   string
	Port     string
	Username string
	Password string
}

type Config struct {
	HTTPAddr    string
	DataDir     string
	StoreDriver string
	LogLevel    string

	Database Database
	Redis    Redis
	AMQPURL  string
	SMTP     SMTP

	DispatchSchedule  string
	DispatchOnStart   bool
	StaggerMin        time.Duration
	StaggerMax        time.Duration
	SendTimeout       time.Duration
	SMTPVerifyTimeout time.Duration
	PassLockTTL       time.Duration
	TriggerRatePerMin int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATA_DIR", "data_source")
	v.SetDefault("STORE_DRIVER", DriverCSV)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DISPATCH_SCHEDULE", "@every 5m")
	v.SetDefault("DISPATCH_ON_START", true)
	v.SetDefault("STAGGER_MIN", "1h")
	v.SetDefault("STAGGER_MAX", "3h")
	v.SetDefault("SEND_TIMEOUT", "0s")
	v.SetDefault("SMTP_VERIFY_TIMEOUT", "8s")
	v.SetDefault("PASS_LOCK_TTL", "10m")
	v.SetDefault("TRIGGER_RATE_PER_MIN", 6)
}

// Load reads config.yaml from the given directories (first match wins) and
// then the environment, which takes precedence. A missing config file is fine.
func Load(dirs ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, d := range dirs {
		v.AddConfigPath(d)
	}
	if len(dirs) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		HTTPAddr:    v.GetString("HTTP_ADDR"),
		DataDir:     v.GetString("DATA_DIR"),
		StoreDriver: strings.ToLower(v.GetString("STORE_DRIVER")),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Database: Database{
			URL:      v.GetString("DATABASE_URL"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
		},
		Redis: Redis{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		AMQPURL: v.GetString("AMQP_URL"),
		SMTP: SMTP{
			Server:   v.GetString("SMTP_SERVER"),
			Port:     v.GetString("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
		},
		DispatchSchedule:  v.GetString("DISPATCH_SCHEDULE"),
		DispatchOnStart:   v.GetBool("DISPATCH_ON_START"),
		TriggerRatePerMin: v.GetInt("TRIGGER_RATE_PER_MIN"),
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"STAGGER_MIN", &cfg.StaggerMin},
		{"STAGGER_MAX", &cfg.StaggerMax},
		{"SEND_TIMEOUT", &cfg.SendTimeout},
		{"SMTP_VERIFY_TIMEOUT", &cfg.SMTPVerifyTimeout},
		{"PASS_LOCK_TTL", &cfg.PassLockTTL},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(strings.TrimSpace(v.GetString(d.key)))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		if parsed < 0 {
			return nil, fmt.Errorf("invalid %s: must not be negative", d.key)
		}
		*d.dst = parsed
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverCSV, DriverPostgres:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: want %s or %s", c.StoreDriver, DriverCSV, DriverPostgres)
	}
	if c.StaggerMin > c.StaggerMax {
		return fmt.Errorf("STAGGER_MIN (%s) is greater than STAGGER_MAX (%s)", c.StaggerMin, c.StaggerMax)
	}
	if c.TriggerRatePerMin <= 0 {
		return fmt.Errorf("TRIGGER_RATE_PER_MIN must be positive")
	}
	return nil
}
