package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// WordPress import configuration
	Import ImportConfig

	// Outbound mail configuration
	Mail MailConfig

	// Public site identity used in emails and links
	Site SiteConfig

	// Logging configuration
	Log LogConfig

	// Admin API configuration
	Admin AdminConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	MigrationsPath string
}

// ImportConfig holds WordPress import settings
type ImportConfig struct {
	MaxUploadSize int64 // in bytes
	UploadDir     string
	// NotifyPublished sends subscriber notifications for posts an import
	// creates in published status.
	NotifyPublished bool
	// StaticDir receives files downloaded by the link fixer.
	StaticDir string
	// LegacyHosts are the old WordPress hosts whose upload links get rewritten.
	LegacyHosts []string
}

// MailConfig holds SMTP settings. An empty User selects the console backend.
type MailConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	UseTLS      bool
	From        string
	AdminEmail  string
	SendTimeout time.Duration
}

// SiteConfig identifies the public blog
type SiteConfig struct {
	Name   string
	Domain string
	Author string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
	Env    string
}

// AdminConfig guards the operator endpoints
type AdminConfig struct {
	Token string
}

// Load reads configuration from .env files and environment variables
func Load() (*Config, error) {
	LoadDotEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 300*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			Name:           getEnv("DB_NAME", "blog"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:   getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:   getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:    getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		},
		Import: ImportConfig{
			MaxUploadSize:   getInt64Env("MAX_UPLOAD_SIZE", 100*1024*1024), // 100MB
			UploadDir:       getEnv("UPLOAD_DIR", "./data/uploads"),
			NotifyPublished: getBoolEnv("IMPORT_NOTIFY_PUBLISHED", false),
			StaticDir:       getEnv("STATIC_DIR", "./static"),
			LegacyHosts:     getListEnv("LEGACY_UPLOAD_HOSTS"),
		},
		Mail: MailConfig{
			Host:        getEnv("EMAIL_HOST", "smtp.gmail.com"),
			Port:        getIntEnv("EMAIL_PORT", 587),
			User:        getEnv("EMAIL_HOST_USER", ""),
			Password:    getEnv("EMAIL_HOST_PASSWORD", ""),
			UseTLS:      getBoolEnv("EMAIL_USE_TLS", true),
			From:        getEnv("DEFAULT_FROM_EMAIL", "noreply@example.com"),
			AdminEmail:  getEnv("ADMIN_EMAIL", ""),
			SendTimeout: getDurationEnv("MAIL_SEND_TIMEOUT", 15*time.Second),
		},
		Site: SiteConfig{
			Name:   getEnv("SITE_NAME", "My Blog"),
			Domain: getEnv("SITE_DOMAIN", "localhost:8080"),
			Author: getEnv("SITE_AUTHOR", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Env:    getEnv("ENV", "production"),
		},
		Admin: AdminConfig{
			Token: getEnv("ADMIN_TOKEN", ""),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if _, err := strconv.Atoi(c.Database.Port); err != nil {
		return fmt.Errorf("DB_PORT must be numeric, got %q", c.Database.Port)
	}
	if c.Mail.Port <= 0 || c.Mail.Port > 65535 {
		return fmt.Errorf("EMAIL_PORT out of range: %d", c.Mail.Port)
	}
	if c.Mail.SendTimeout <= 0 {
		return fmt.Errorf("MAIL_SEND_TIMEOUT must be positive")
	}
	return nil
}

// ConsoleMail reports whether outbound mail should be written to the log
// instead of an SMTP server.
func (c *MailConfig) ConsoleMail() bool {
	return c.User == ""
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
