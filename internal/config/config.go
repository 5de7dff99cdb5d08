package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Gmail    GmailConfig    `yaml:"gmail"`
	LLM      LLMConfig      `yaml:"llm"`
	Worker   WorkerConfig   `yaml:"worker"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
}

// ServerConfig holds HTTP server configuration for the API service
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// GmailConfig holds Gmail API client configuration
type GmailConfig struct {
	CredentialsPath string        `yaml:"credentials_path"`
	TokenPath       string        `yaml:"token_path"`
	PageSize        int64         `yaml:"page_size"`
	ListCap         int           `yaml:"list_cap"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

// LLMConfig holds classification backend configuration
type LLMConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Model          string        `yaml:"model"`
	APIKeyEnv      string        `yaml:"api_key_env"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	PollInterval      time.Duration `yaml:"poll_interval"`
	LoopErrorBackoff  time.Duration `yaml:"loop_error_backoff"`
	DeleteBatchSize   int           `yaml:"delete_batch_size"`
	BatchPause        time.Duration `yaml:"batch_pause"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	StaleJobThreshold time.Duration `yaml:"stale_job_threshold"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

// applyDefaults fills in defaults for optional worker and gmail settings
func (c *Config) applyDefaults() {
	if c.Worker.PollInterval <= 0 {
		c.Worker.PollInterval = 10 * time.Second
	}
	if c.Worker.LoopErrorBackoff <= 0 {
		c.Worker.LoopErrorBackoff = 30 * time.Second
	}
	if c.Worker.DeleteBatchSize <= 0 {
		c.Worker.DeleteBatchSize = 25
	}
	if c.Worker.BatchPause <= 0 {
		c.Worker.BatchPause = 10 * time.Second
	}
	if c.Worker.HeartbeatInterval <= 0 {
		c.Worker.HeartbeatInterval = 30 * time.Second
	}
	if c.Worker.StaleJobThreshold <= 0 {
		c.Worker.StaleJobThreshold = 5 * time.Minute
	}
	if c.Gmail.PageSize <= 0 {
		c.Gmail.PageSize = 100
	}
	if c.Gmail.ListCap <= 0 {
		c.Gmail.ListCap = 10000
	}
}

// ValidateAPIConfig checks the settings the API service depends on
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	return c.validateDatabase()
}

// ValidateWorkerConfig checks the settings the worker service depends on
func (c *Config) ValidateWorkerConfig() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if c.Gmail.CredentialsPath == "" {
		return fmt.Errorf("gmail credentials_path is required")
	}

	if c.Gmail.TokenPath == "" {
		return fmt.Errorf("gmail token_path is required")
	}

	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm base_url is required")
	}

	if c.LLM.Model == "" {
		return fmt.Errorf("llm model is required")
	}

	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}
