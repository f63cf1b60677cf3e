// Copyright 2026 Alchemist AI
// SPDX-License-Identifier: Apache-2.0

// Package config loads and validates server configuration from the
// environment, with optional YAML file overrides. Validation happens once
// at process startup so missing required settings fail fast with a
// descriptive error instead of surfacing at first request.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// EnvDevelopment disables the Secure cookie flag and enables verbose
	// error responses.
	EnvDevelopment = "development"
	// EnvProduction is the default deployment environment.
	EnvProduction = "production"

	// minJWTSecretLen is the minimum accepted signing secret length.
	minJWTSecretLen = 32

	// DefaultFreeDailySearches is the free-plan daily query quota.
	DefaultFreeDailySearches = 3
)

// Config holds all server configuration.
type Config struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`

	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`

	JWTSecret string `yaml:"jwt_secret"`

	// RedisURL is optional; when set the auth rate limiter runs against
	// Redis instead of MongoDB.
	RedisURL string `yaml:"redis_url"`

	BillingAPIKey        string `yaml:"billing_api_key"`
	BillingWebhookSecret string `yaml:"billing_webhook_secret"`
	BillingBaseURL       string `yaml:"billing_base_url"`

	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`

	ShareBaseURL string `yaml:"share_base_url"`

	// CORSAllowedOrigins lists the exact origins allowed to make
	// credentialed requests. Wildcards are rejected because browsers do
	// not send cookies to a wildcard origin.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	FreeDailySearches   int           `yaml:"free_daily_searches"`
	AuthRateLimitMax    int           `yaml:"auth_rate_limit_max"`
	AuthRateLimitWindow time.Duration `yaml:"auth_rate_limit_window"`
}

// Load builds a Config from the environment. If ALCHEMIST_CONFIG names a
// YAML file, values from that file override environment values. Returns an
// error listing every missing or invalid required setting.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		Environment:          getEnv("APP_ENV", EnvProduction),
		MongoURI:             os.Getenv("MONGODB_URI"),
		MongoDatabase:        getEnv("MONGODB_DATABASE", "alchemist"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		RedisURL:             os.Getenv("REDIS_URL"),
		BillingAPIKey:        os.Getenv("BILLING_API_KEY"),
		BillingWebhookSecret: os.Getenv("BILLING_WEBHOOK_SECRET"),
		BillingBaseURL:       getEnv("BILLING_BASE_URL", "https://api.billing.example.com/v1"),
		SMTPHost:             os.Getenv("SMTP_HOST"),
		SMTPPort:             getEnvInt("SMTP_PORT", 587),
		SMTPUser:             os.Getenv("SMTP_USER"),
		SMTPPassword:         os.Getenv("SMTP_PASSWORD"),
		ShareBaseURL:         getEnv("SHARE_BASE_URL", "https://alchemist.example.com/share"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
			"https://alchemist.example.com",
			"https://www.alchemist.example.com",
		}),
		FreeDailySearches:    getEnvInt("FREE_DAILY_SEARCHES", DefaultFreeDailySearches),
		AuthRateLimitMax:     getEnvInt("AUTH_RATE_LIMIT_MAX", 10),
		AuthRateLimitWindow:  getEnvDuration("AUTH_RATE_LIMIT_WINDOW", 15*time.Minute),
	}

	if path := os.Getenv("ALCHEMIST_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFile overlays YAML values from path onto the config.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks required settings and reports all problems at once.
func (c *Config) Validate() error {
	var problems []string

	if c.MongoURI == "" {
		problems = append(problems, "MONGODB_URI is required")
	}
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	} else if len(c.JWTSecret) < minJWTSecretLen {
		problems = append(problems, fmt.Sprintf("JWT_SECRET must be at least %d characters", minJWTSecretLen))
	}
	if c.BillingAPIKey == "" {
		problems = append(problems, "BILLING_API_KEY is required")
	}
	if c.BillingWebhookSecret == "" {
		problems = append(problems, "BILLING_WEBHOOK_SECRET is required")
	}
	if c.SMTPHost == "" {
		problems = append(problems, "SMTP_HOST is required")
	}
	if c.SMTPUser == "" {
		problems = append(problems, "SMTP_USER is required")
	}
	if c.SMTPPassword == "" {
		problems = append(problems, "SMTP_PASSWORD is required")
	}
	if c.FreeDailySearches < 0 {
		problems = append(problems, "free_daily_searches must not be negative")
	}
	for _, origin := range c.CORSAllowedOrigins {
		if strings.Contains(origin, "*") {
			problems = append(problems, "CORS_ALLOWED_ORIGINS must not contain wildcards on a credentialed API")
			break
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// IsDevelopment reports whether the server runs in local development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		var out []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
