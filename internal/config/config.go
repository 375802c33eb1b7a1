// Package config loads service settings from an optional YAML file, then
// applies environment overrides and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jcmexdev/portal-flows/internal/confirmation"
)

type Config struct {
	Environment  string `yaml:"environment"`
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	RedisAddr    string `yaml:"redis_addr"`

	Gateway GatewayConfig `yaml:"gateway"`
	Payment PaymentConfig `yaml:"payment"`
	Auth    AuthConfig    `yaml:"auth"`

	// RequestTypes overrides entries of the built-in request type catalog.
	RequestTypes map[string]confirmation.Config `yaml:"request_types"`
}

type GatewayConfig struct {
	HTTPAddr           string        `yaml:"http_addr"`
	FlowLogPath        string        `yaml:"flow_log_path"`
	ContinuationSecret string        `yaml:"continuation_secret"`
	ContinuationTTL    time.Duration `yaml:"continuation_ttl"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	// FakePayments serves payments in-process instead of dialing the payment service.
	FakePayments bool `yaml:"fake_payments"`
}

type PaymentConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ServiceAddr     string        `yaml:"service_addr"`
	CheckoutBaseURL string        `yaml:"checkout_base_url"`
	Timeout         time.Duration `yaml:"timeout"`
}

type AuthConfig struct {
	// BackendURL is the portal auth API. Empty selects the in-memory fake.
	BackendURL        string        `yaml:"backend_url"`
	Timeout           time.Duration `yaml:"timeout"`
	OTPPerMinute      float64       `yaml:"otp_per_minute"`
	OTPBurst          int           `yaml:"otp_burst"`
	RememberCookieTTL time.Duration `yaml:"remember_cookie_ttl"`
}

const devContinuationSecret = "dev-insecure-continuation-secret"

// Load reads path when non-empty, then environment overrides, then defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Environment, "APP_ENV")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&c.RedisAddr, "REDIS_ADDR")

	setString(&c.Gateway.HTTPAddr, "HTTP_ADDR")
	setString(&c.Gateway.FlowLogPath, "FLOW_LOG_PATH")
	setString(&c.Gateway.ContinuationSecret, "CONTINUATION_SECRET")
	setString(&c.Payment.ListenAddr, "PAYMENT_LISTEN_ADDR")
	setString(&c.Payment.ServiceAddr, "PAYMENT_SERVICE_ADDR")
	setString(&c.Payment.CheckoutBaseURL, "PAYMENT_CHECKOUT_BASE_URL")
	setString(&c.Auth.BackendURL, "AUTH_BACKEND_URL")

	if v := getEnv("FAKE_PAYMENTS", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: FAKE_PAYMENTS: %w", err)
		}
		c.Gateway.FakePayments = b
	}
	for key, dst := range map[string]*time.Duration{
		"CONTINUATION_TTL": &c.Gateway.ContinuationTTL,
		"PAYMENT_TIMEOUT":  &c.Payment.Timeout,
		"AUTH_TIMEOUT":     &c.Auth.Timeout,
	} {
		if v := getEnv(key, ""); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", key, err)
			}
			*dst = d
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	defaultString(&c.Environment, "local")
	defaultString(&c.LogLevel, "info")
	defaultString(&c.Gateway.HTTPAddr, ":8080")
	defaultString(&c.Gateway.FlowLogPath, "./data/flows.db")
	defaultString(&c.Payment.ListenAddr, ":9091")
	defaultString(&c.Payment.ServiceAddr, "localhost:9091")
	defaultString(&c.Payment.CheckoutBaseURL, "http://localhost:8080/checkout")
	if c.Gateway.ContinuationSecret == "" && c.Environment == "local" {
		c.Gateway.ContinuationSecret = devContinuationSecret
	}
	defaultDuration(&c.Gateway.ContinuationTTL, 30*time.Minute)
	defaultDuration(&c.Gateway.ShutdownTimeout, 10*time.Second)
	defaultDuration(&c.Payment.Timeout, 10*time.Second)
	defaultDuration(&c.Auth.Timeout, 10*time.Second)
	defaultDuration(&c.Auth.RememberCookieTTL, 30*24*time.Hour)
	if c.Auth.OTPPerMinute <= 0 {
		c.Auth.OTPPerMinute = 1
	}
	if c.Auth.OTPBurst <= 0 {
		c.Auth.OTPBurst = 3
	}
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Gateway.ContinuationSecret == "" {
		errs = append(errs, errors.New("config: continuation_secret is required outside local"))
	}
	if c.Gateway.ContinuationTTL <= 0 {
		errs = append(errs, errors.New("config: continuation_ttl must be positive"))
	}
	for tag := range c.RequestTypes {
		if confirmation.ParseRequestType(tag).String() != tag {
			errs = append(errs, fmt.Errorf("config: unknown request type %q", tag))
		}
	}
	return errors.Join(errs...)
}

// Catalog builds the request type catalog with the configured overrides.
func (c *Config) Catalog() *confirmation.Catalog {
	overrides := make(map[confirmation.RequestType]confirmation.Config, len(c.RequestTypes))
	for tag, rc := range c.RequestTypes {
		overrides[confirmation.ParseRequestType(tag)] = rc
	}
	return confirmation.NewCatalog(overrides)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func setString(dst *string, key string) {
	*dst = getEnv(key, *dst)
}

func defaultString(dst *string, fallback string) {
	if *dst == "" {
		*dst = fallback
	}
}

func defaultDuration(dst *time.Duration, fallback time.Duration) {
	if *dst <= 0 {
		*dst = fallback
	}
}
