package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	DocGen   DocGenConfig   `mapstructure:"docgen"`
	SMS      SMSConfig      `mapstructure:"sms"`
	Report   ReportConfig   `mapstructure:"report"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// StorageConfig holds upload storage configuration
type StorageConfig struct {
	BaseDir       string `mapstructure:"base_dir"`
	MaxUploadSize int64  `mapstructure:"max_upload_size"`
}

// DocGenConfig holds document generation service configuration
type DocGenConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIToken string        `mapstructure:"api_token"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SMSConfig holds SMS gateway configuration
type SMSConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIToken   string        `mapstructure:"api_token"`
	SenderName string        `mapstructure:"sender_name"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Enabled    bool          `mapstructure:"enabled"`
}

// ReportConfig holds register export configuration
type ReportConfig struct {
	OutputDir    string `mapstructure:"output_dir"`
	BarangayName string `mapstructure:"barangay_name"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Enabled      bool          `mapstructure:"enabled"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/barangay_portal.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	viper.SetDefault("storage.base_dir", "uploads")
	viper.SetDefault("storage.max_upload_size", int64(10<<20))

	viper.SetDefault("docgen.timeout", 60*time.Second)

	viper.SetDefault("sms.sender_name", "BRGYPORTAL")
	viper.SetDefault("sms.timeout", 15*time.Second)
	viper.SetDefault("sms.enabled", false)

	viper.SetDefault("report.output_dir", "reports")
	viper.SetDefault("report.barangay_name", "Barangay")

	viper.SetDefault("worker.poll_interval", 30*time.Second)
	viper.SetDefault("worker.enabled", true)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("docgen.base_url", "DOCGEN_BASE_URL")
	viper.BindEnv("docgen.api_token", "DOCGEN_API_TOKEN")
	viper.BindEnv("sms.base_url", "SMS_BASE_URL")
	viper.BindEnv("sms.api_token", "SMS_API_TOKEN")
	viper.BindEnv("report.barangay_name", "BARANGAY_NAME")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}
	if c.DocGen.BaseURL == "" {
		return fmt.Errorf("docgen.base_url is required")
	}
	if c.SMS.Enabled && c.SMS.BaseURL == "" {
		return fmt.Errorf("sms.base_url is required when sms is enabled")
	}
	return nil
}
