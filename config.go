package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the server.
type Config struct {
	// Server settings
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// Store settings
	Shards int `mapstructure:"shards"`

	// Sweeper settings
	SweepTick     time.Duration `mapstructure:"sweep_tick"`
	SampleSize    int           `mapstructure:"sample_size"`
	SuccessFactor int           `mapstructure:"success_factor"`

	// Connection settings
	ReadBufferSize int `mapstructure:"read_buffer_size"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Host:           "localhost",
		Port:           6379,
		Shards:         100000,
		SweepTick:      10 * time.Millisecond,
		SampleSize:     20,
		SuccessFactor:  4,
		ReadBufferSize: 512,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// LoadConfig loads configuration from environment variables, config
// file, and defaults, in that precedence (CLI flags, when bound via
// cmd.go, take precedence over all of these).
func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigName("gofast")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/gofast/")
	viper.AddConfigPath("$HOME/.gofast")

	viper.SetEnvPrefix("GOFAST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("host", config.Host)
	viper.SetDefault("port", config.Port)
	viper.SetDefault("shards", config.Shards)
	viper.SetDefault("sweep_tick", config.SweepTick)
	viper.SetDefault("sample_size", config.SampleSize)
	viper.SetDefault("success_factor", config.SuccessFactor)
	viper.SetDefault("read_buffer_size", config.ReadBufferSize)
	viper.SetDefault("log_level", config.LogLevel)
	viper.SetDefault("log_format", config.LogFormat)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}
	if c.Shards < 1 {
		return fmt.Errorf("shards must be at least 1")
	}
	if c.SweepTick <= 0 {
		return fmt.Errorf("sweep_tick must be positive")
	}
	if c.SampleSize < 1 {
		return fmt.Errorf("sample_size must be at least 1")
	}
	if c.SuccessFactor < 1 {
		return fmt.Errorf("success_factor must be at least 1")
	}
	if c.ReadBufferSize < 512 {
		return fmt.Errorf("read_buffer_size must be at least 512")
	}

	validLogLevels := []string{"trace", "debug", "info", "warn", "error", "fatal"}
	validLevel := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)",
			c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log_format: %s (must be \"text\" or \"json\")", c.LogFormat)
	}

	return nil
}

// String returns a one-line summary of the config, suitable for a
// startup log line.
func (c *Config) String() string {
	return fmt.Sprintf("gofast config: %s:%d, shards=%d, sweep_tick=%s, log_level=%s",
		c.Host, c.Port, c.Shards, c.SweepTick, c.LogLevel)
}
