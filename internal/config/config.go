package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env          string             `mapstructure:"env"`
	Log          LogConfig          `mapstructure:"log"`
	Server       ServerConfig       `mapstructure:"server"`
	Signup       SignupConfig       `mapstructure:"signup"`
	Registration RegistrationConfig `mapstructure:"registration"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
}

type LogConfig struct {
	Format string `mapstructure:"format"`
	Level  string `mapstructure:"level"`
}

type ServerConfig struct {
	Port         string   `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout_seconds"`
	WriteTimeout int      `mapstructure:"write_timeout_seconds"`
	IdleTimeout  int      `mapstructure:"idle_timeout_seconds"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
}

type SignupConfig struct {
	MinAge               int    `mapstructure:"min_age"`
	MaxPictureBytes      int64  `mapstructure:"max_picture_bytes"`
	RedirectDelaySeconds int    `mapstructure:"redirect_delay_seconds"`
	LoginPath            string `mapstructure:"login_path"`
	SessionTTLMinutes    int    `mapstructure:"session_ttl_minutes"`
	SubmitTimeoutSeconds int    `mapstructure:"submit_timeout_seconds"`
}

func (c SignupConfig) RedirectDelay() time.Duration {
	return time.Duration(c.RedirectDelaySeconds) * time.Second
}

func (c SignupConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func (c SignupConfig) SubmitTimeout() time.Duration {
	return time.Duration(c.SubmitTimeoutSeconds) * time.Second
}

// RegistrationConfig selects where submitted signups are handed off.
// Backend is one of "log", "nats" or "kafka".
type RegistrationConfig struct {
	Backend string      `mapstructure:"backend"`
	NATS    NATSConfig  `mapstructure:"nats"`
	Kafka   KafkaConfig `mapstructure:"kafka"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// TelemetryConfig enables OTLP export. Empty endpoints disable the signal.
type TelemetryConfig struct {
	MetricsEndpoint string `mapstructure:"metrics_endpoint"`
	TracesEndpoint  string `mapstructure:"traces_endpoint"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("log.format", "")
	v.SetDefault("log.level", "")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 15)
	v.SetDefault("server.idle_timeout_seconds", 60)
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("signup.min_age", 16)
	v.SetDefault("signup.max_picture_bytes", 5*1024*1024)
	v.SetDefault("signup.redirect_delay_seconds", 2)
	v.SetDefault("signup.login_path", "/login")
	v.SetDefault("signup.session_ttl_minutes", 30)
	v.SetDefault("signup.submit_timeout_seconds", 10)

	v.SetDefault("registration.backend", "log")
	v.SetDefault("registration.nats.url", "nats://localhost:4222")
	v.SetDefault("registration.nats.subject", "scholarship.signups")
	v.SetDefault("registration.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("registration.kafka.topic", "scholarship.signups")

	v.SetDefault("telemetry.metrics_endpoint", "")
	v.SetDefault("telemetry.traces_endpoint", "")
}

func Load() (*Config, error) {
	env := os.Getenv("ENV")
	if env == "" {
		env = "local"
	}

	v := viper.New()
	setDefaults(v)
	v.Set("env", env)

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	v.SetConfigType("yaml")
	v.AddConfigPath("/configs")      // Kubernetes mount
	v.AddConfigPath("./configs")     // repository root
	v.AddConfigPath("../configs")    // cmd/
	v.AddConfigPath("../../configs") // cmd/server, internal/<pkg>

	// Config file is optional, defaults and ENV still apply.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// SERVER_PORT overrides server.port and so on.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("server.port", "PORT")
	v.BindEnv("registration.nats.url", "NATS_URL")
	v.BindEnv("registration.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("telemetry.metrics_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.traces_endpoint", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	switch c.Registration.Backend {
	case "log", "nats", "kafka":
	default:
		return fmt.Errorf("unknown registration backend %q", c.Registration.Backend)
	}
	if c.Signup.MinAge < 0 {
		return fmt.Errorf("signup.min_age must not be negative, got %d", c.Signup.MinAge)
	}
	if c.Signup.MaxPictureBytes <= 0 {
		return fmt.Errorf("signup.max_picture_bytes must be positive, got %d", c.Signup.MaxPictureBytes)
	}
	if !strings.HasPrefix(c.Signup.LoginPath, "/") {
		return fmt.Errorf("signup.login_path must be an absolute path, got %q", c.Signup.LoginPath)
	}
	return nil
}
