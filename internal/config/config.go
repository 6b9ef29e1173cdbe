package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Consumer ConsumerConfig
	Debug    bool `mapstructure:"debug"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"maxOpenConns"`
	MaxIdleConns int    `mapstructure:"maxIdleConns"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"maxRetries"`
	RetryBackoff time.Duration `mapstructure:"retryBackoff"`
	PoolSize     int           `mapstructure:"poolSize"`
	MinIdleConns int           `mapstructure:"minIdleConns"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiryHours"`
}

type ConsumerConfig struct {
	Topic              string `mapstructure:"topic"`
	Workers            int    `mapstructure:"workers"`
	SendTimeoutSeconds int    `mapstructure:"sendTimeoutSeconds"`
}

// Secrets are environment-only overrides for values that must not live
// in the config file.
type Secrets struct {
	JWTSecret  string `envconfig:"NOTIFYAH_JWT_SECRET"`
	DBPassword string `envconfig:"NOTIFYAH_DB_PASSWORD"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var secrets Secrets
	if err := envconfig.Process("", &secrets); err != nil {
		return nil, fmt.Errorf("failed to read secrets from environment: %w", err)
	}
	if secrets.JWTSecret != "" {
		config.JWT.Secret = secrets.JWTSecret
	}
	if secrets.DBPassword != "" {
		config.Database.Password = secrets.DBPassword
	}

	if config.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	return &config, nil
}

func (c *Config) JWTExpiry() time.Duration {
	if c.JWT.ExpiryHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.JWT.ExpiryHours) * time.Hour
}

func (c *Config) SendTimeout() time.Duration {
	if c.Consumer.SendTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Consumer.SendTimeoutSeconds) * time.Second
}
