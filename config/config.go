// Package config loads the application settings and the service catalog.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/tbxark/estimagent/types"
	"gopkg.in/yaml.v3"
)

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Enabled reports whether model-backed collaborators can be built.
func (c OpenAIConfig) Enabled() bool {
	return c.APIKey != ""
}

type Config struct {
	Env               string        `yaml:"env"`
	Addr              string        `yaml:"addr" validate:"required"`
	DefaultService    string        `yaml:"default_service" validate:"required"`
	ExtractionTimeout time.Duration `yaml:"extraction_timeout" validate:"gt=0"`
	HistoryWindow     int           `yaml:"history_window" validate:"gte=0"`
	SessionTTL        time.Duration `yaml:"session_ttl" validate:"gte=0"`
	RateLimit         float64       `yaml:"rate_limit" validate:"gte=0"`
	RateBurst         int           `yaml:"rate_burst" validate:"gte=0"`
	RedisURL          string        `yaml:"redis_url"`
	OpenAI            OpenAIConfig  `yaml:"openai"`

	Services map[string]types.ServiceProfile `yaml:"services" validate:"min=1,dive"`
}

// Default returns the settings used when no file is given: one roofing
// profile, in-memory sessions and local collaborators.
func Default() *Config {
	roofing := types.DefaultProfile()
	return &Config{
		Env:               "development",
		Addr:              ":8080",
		DefaultService:    roofing.Name,
		ExtractionTimeout: 15 * time.Second,
		HistoryWindow:     6,
		SessionTTL:        24 * time.Hour,
		RateLimit:         5,
		RateBurst:         10,
		OpenAI:            OpenAIConfig{Model: "gpt-4o"},
		Services:          map[string]types.ServiceProfile{roofing.Name: roofing},
	}
}

// Load reads .env, then the YAML file at path (if any), then environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	builtin := c.Services
	c.Services = nil
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(c.Services) == 0 {
		c.Services = builtin
	}
	return nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Env, "APP_ENV")
	setFromEnv(&c.Addr, "ESTIMAGENT_ADDR")
	setFromEnv(&c.RedisURL, "ESTIMAGENT_REDIS_URL")
	setFromEnv(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setFromEnv(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setFromEnv(&c.OpenAI.Model, "OPENAI_MODEL")
}

func setFromEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// normalize lowercases service keys and names profiles after their key.
func (c *Config) normalize() {
	services := make(map[string]types.ServiceProfile, len(c.Services))
	for name, profile := range c.Services {
		key := normalizeName(name)
		profile.Name = key
		services[key] = profile
	}
	c.Services = services
	c.DefaultService = normalizeName(c.DefaultService)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, ok := c.Services[c.DefaultService]; !ok {
		return fmt.Errorf("invalid config: default service %q is not in the catalog", c.DefaultService)
	}
	for name, profile := range c.Services {
		for _, field := range profile.RequiredFields {
			if strings.TrimSpace(field) == "" {
				return fmt.Errorf("invalid config: service %q has a blank required field", name)
			}
		}
		if !slices.Contains(profile.RequiredFields, types.FieldArea) {
			return fmt.Errorf("invalid config: service %q must require %s", name, types.FieldArea)
		}
	}
	return nil
}

// IsDevelopment reports whether Env names a development environment.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Catalog returns the service profiles keyed by name.
func (c *Config) Catalog() Catalog {
	return Catalog(c.Services)
}

// Catalog resolves service names to profiles, ignoring case and spacing.
type Catalog map[string]types.ServiceProfile

func (c Catalog) Profile(name string) (types.ServiceProfile, bool) {
	p, ok := c[normalizeName(name)]
	return p, ok
}

// Names returns the catalogued service names, sorted.
func (c Catalog) Names() []string {
	return slices.Sorted(maps.Keys(c))
}

// ValidationErrors unwraps field level errors from err, if any.
func ValidationErrors(err error) validator.ValidationErrors {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs
	}
	return nil
}
