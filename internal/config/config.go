package config

import (
	"errors"
	"fmt"
	"os"

	"wakepark/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Admin      AdminConfig      `yaml:"admin"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Google     GoogleConfig     `yaml:"google"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
	// TablePrefix isolates dev/prod tables inside the same database file,
	// e.g. "dev_" or "prod_".
	TablePrefix string `yaml:"table_prefix"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type ScheduleConfig struct {
	// VisibilityWeeks how far ahead the public calendar is populated.
	VisibilityWeeks int `yaml:"visibility_weeks"`
	// ReservationTTLMinutes how long an unconfirmed hold survives.
	ReservationTTLMinutes int `yaml:"reservation_ttl_minutes"`
	// LeadTimeFailOpen controls what the lead-time evaluator answers when it
	// cannot reach storage. Defaults to open (allow the booking).
	LeadTimeFailOpen *bool `yaml:"lead_time_fail_open"`
	// SeedPath points to the yaml file with default operating hours and
	// pricing used on first start.
	SeedPath string `yaml:"seed_path"`
}

type AdminConfig struct {
	Accounts        []AdminAccount `yaml:"accounts"`
	SessionTTLHours int            `yaml:"session_ttl_hours"`
	CookieName      string         `yaml:"cookie_name"`
	CookieSecure    bool           `yaml:"cookie_secure"`
}

type AdminAccount struct {
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type GoogleConfig struct {
	CredentialsFile      string `yaml:"credentials_file"`
	BookingSpreadSheetID string `yaml:"bookings_spreadsheet_id"`
}

type TelegramConfig struct {
	BotToken       string `yaml:"bot_token"`
	OperatorChatID int64  `yaml:"operator_chat_id"`
	Debug          bool   `yaml:"debug"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env подхватывается, если существует
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if len(c.Admin.Accounts) == 0 {
		return errors.New("at least one admin account is required")
	}
	for _, a := range c.Admin.Accounts {
		if a.Name == "" || a.Password == "" {
			return errors.New("admin account requires both name and password")
		}
	}

	if c.Schedule.VisibilityWeeks < 0 {
		return errors.New("schedule.visibility_weeks must not be negative")
	}

	return nil
}

// LeadTimeFailOpen resolves the tri-state yaml field to its default.
func (c *Config) LeadTimeFailOpen() bool {
	if c.Schedule.LeadTimeFailOpen == nil {
		return true
	}
	return *c.Schedule.LeadTimeFailOpen
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Schedule.VisibilityWeeks == 0 {
		c.Schedule.VisibilityWeeks = models.DefaultVisibilityWeeks
	}
	if c.Schedule.ReservationTTLMinutes == 0 {
		c.Schedule.ReservationTTLMinutes = int(models.DefaultReservationTTL.Minutes())
	}
	if c.Schedule.SeedPath == "" {
		c.Schedule.SeedPath = "configs/schedule.yaml"
	}
	if c.Admin.SessionTTLHours == 0 {
		c.Admin.SessionTTLHours = int(models.DefaultSessionTTL.Hours())
	}
	if c.Admin.CookieName == "" {
		c.Admin.CookieName = "wp_session"
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 5
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 10
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
