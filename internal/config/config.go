package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"library-circulation/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	SMTP        SMTPConfig        `yaml:"smtp"`
	Log         LogConfig         `yaml:"log"`
	Circulation CirculationConfig `yaml:"circulation"`
	FinePolicy  domain.FinePolicy `yaml:"fine_policy"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
}

type ServerConfig struct {
	Host     string `yaml:"host"`
	HTTPPort int    `yaml:"http_port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// DatabaseConfig selects the store. Driver is "postgres" (lib/pq), "pgx" or
// "memory"; the connection fields are ignored for "memory".
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	User                   string `yaml:"user"`
	Password               string `yaml:"password"`
	Database               string `yaml:"database"`
	SSLMode                string `yaml:"ssl_mode"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// SMTPConfig contains email service settings
type SMTPConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

type CirculationConfig struct {
	DefaultLoanDays int `yaml:"default_loan_days"`
}

// SchedulerConfig contains cron schedule settings (seconds field first)
type SchedulerConfig struct {
	SendOverdueReminders string `yaml:"send_overdue_reminders"`
}

const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverMemory   = "memory"
)

// Default returns the configuration a file is layered over.
func Default() Config {
	return Config{
		Server:      ServerConfig{Host: "0.0.0.0", HTTPPort: 8080, GRPCPort: 50051},
		Database:    DatabaseConfig{Driver: DriverPostgres, Port: 5432, SSLMode: "disable"},
		SMTP:        SMTPConfig{Port: 587},
		Log:         LogConfig{Level: "info", Format: "text"},
		Circulation: CirculationConfig{DefaultLoanDays: 14},
		FinePolicy:  domain.DefaultFinePolicy(),
		Scheduler:   SchedulerConfig{SendOverdueReminders: "0 0 3 * * *"},
	}
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse layers YAML and then environment variables over Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.overrideWithEnv(); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() error {
	// Database
	if val := os.Getenv("DB_DRIVER"); val != "" {
		c.Database.Driver = val
	}
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// SMTP
	if val := os.Getenv("SMTP_ENABLED"); val != "" {
		c.SMTP.Enabled = strings.EqualFold(val, "true") || val == "1"
	}
	if val := os.Getenv("SMTP_HOST"); val != "" {
		c.SMTP.Host = val
	}
	if val := os.Getenv("SMTP_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.SMTP.Port)
	}
	if val := os.Getenv("SMTP_USER"); val != "" {
		c.SMTP.User = val
	}
	if val := os.Getenv("SMTP_PASSWORD"); val != "" {
		c.SMTP.Password = val
	}
	if val := os.Getenv("SMTP_FROM"); val != "" {
		c.SMTP.From = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_HTTP_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.HTTPPort)
	}
	if val := os.Getenv("SERVER_GRPC_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.GRPCPort)
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Fine policy
	for env, dst := range map[string]*decimal.Decimal{
		"FINE_DAILY_RATE":       &c.FinePolicy.DailyRate,
		"FINE_LOST_MULTIPLIER":  &c.FinePolicy.LostMultiplier,
		"FINE_SMALL_DAMAGE_PCT": &c.FinePolicy.SmallDamagePct,
		"FINE_LARGE_DAMAGE_PCT": &c.FinePolicy.LargeDamagePct,
	} {
		if val := os.Getenv(env); val != "" {
			d, err := decimal.NewFromString(val)
			if err != nil {
				return fmt.Errorf("%s: %w", env, err)
			}
			*dst = d
		}
	}
	if val := os.Getenv("FINE_OVERDUE_THRESHOLD_DAYS"); val != "" {
		fmt.Sscanf(val, "%d", &c.FinePolicy.OverdueThresholdDays)
	}
	return nil
}

// Validate checks if the configuration is valid and fills remaining defaults
func (c *Config) Validate() error {
	if err := validPort("server http", c.Server.HTTPPort); err != nil {
		return err
	}
	if err := validPort("server grpc", c.Server.GRPCPort); err != nil {
		return err
	}

	switch c.Database.Driver {
	case DriverPostgres, DriverPgx:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.SMTP.Enabled {
		if c.SMTP.Host == "" {
			return fmt.Errorf("SMTP host is required when smtp is enabled")
		}
		if err := validPort("SMTP", c.SMTP.Port); err != nil {
			return err
		}
		if c.SMTP.From == "" {
			return fmt.Errorf("SMTP from address is required when smtp is enabled")
		}
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Circulation.DefaultLoanDays <= 0 {
		c.Circulation.DefaultLoanDays = 14
	}

	p := c.FinePolicy
	for name, v := range map[string]decimal.Decimal{
		"daily_rate":       p.DailyRate,
		"lost_multiplier":  p.LostMultiplier,
		"small_damage_pct": p.SmallDamagePct,
		"large_damage_pct": p.LargeDamagePct,
	} {
		if v.IsNegative() {
			return fmt.Errorf("fine_policy.%s must not be negative", name)
		}
	}
	if p.OverdueThresholdDays < 0 {
		return fmt.Errorf("fine_policy.overdue_threshold_days must not be negative")
	}

	if c.Scheduler.SendOverdueReminders == "" {
		c.Scheduler.SendOverdueReminders = "0 0 3 * * *" // 3 AM
	}
	return nil
}

func validPort(name string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid %s port: %d", name, port)
	}
	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

func (c *Config) GetHTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

func (c *Config) ConnMaxLifetime() time.Duration {
	return time.Duration(c.Database.ConnMaxLifetimeMinutes) * time.Minute
}
