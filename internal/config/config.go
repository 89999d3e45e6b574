// Package config provides YAML-based configuration loading for Telltale.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Telltale configuration, loaded from config.yaml.
// Environment variables fill any field the file leaves unset.
type Config struct {
	Server    ServerConfig   `yaml:"server"`
	Client    ClientConfig   `yaml:"client"`
	Providers ProviderConfig `yaml:"providers"`
}

// ServerConfig holds settings for the vehicle state server.
type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`

	// RateLimitRPM caps assistant calls per client per minute. Unset
	// defaults to 5; a negative value disables the limiter.
	RateLimitRPM int `yaml:"rate_limit_rpm"`

	// RegistryPath overrides the embedded control registry document.
	RegistryPath string `yaml:"registry_path"`
}

// ClientConfig holds settings for dashboard commands talking to the server.
type ClientConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"api_key"`
	PollSeconds int    `yaml:"poll_seconds"`
}

// ProviderConfig holds credentials for the assistant model backends.
type ProviderConfig struct {
	Gemini GeminiConfig `yaml:"gemini"`
	Azure  AzureConfig  `yaml:"azure"`
}

// GeminiConfig holds Google Gemini connection settings. Model and Endpoint
// fall back to the provider's own defaults when empty.
type GeminiConfig struct {
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint"`
}

// AzureConfig holds Azure OpenAI connection settings.
type AzureConfig struct {
	APIKey     string `yaml:"api_key"`
	Endpoint   string `yaml:"endpoint"`
	Deployment string `yaml:"deployment"`
	APIVersion string `yaml:"api_version"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Default builds a validated Config from environment variables and built-in
// defaults alone, for running without a config file.
func Default() (*Config, error) {
	return Parse(nil)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv fills unset fields from the environment. File values win.
func (c *Config) applyEnv() {
	fillString(&c.Server.APIKey, "TELLTALE_API_KEY")
	fillString(&c.Server.RegistryPath, "TELLTALE_REGISTRY")
	fillInt(&c.Server.Port, "PORT")
	fillInt(&c.Server.RateLimitRPM, "LLM_RATE_LIMIT_RPM")

	fillString(&c.Client.BaseURL, "TELLTALE_SERVER_URL")

	fillString(&c.Providers.Gemini.APIKey, "GEMINI_API_KEY")
	fillString(&c.Providers.Gemini.Model, "GEMINI_MODEL")
	fillString(&c.Providers.Gemini.Endpoint, "GEMINI_API_ENDPOINT")

	fillString(&c.Providers.Azure.APIKey, "AZURE_OPENAI_API_KEY")
	fillString(&c.Providers.Azure.Endpoint, "AZURE_OPENAI_ENDPOINT")
	fillString(&c.Providers.Azure.Deployment, "AZURE_OPENAI_DEPLOYMENT")
	fillString(&c.Providers.Azure.APIVersion, "AZURE_OPENAI_API_VERSION")
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.RateLimitRPM == 0 {
		c.Server.RateLimitRPM = 5
	}
	if c.Client.BaseURL == "" {
		c.Client.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	if c.Client.APIKey == "" {
		c.Client.APIKey = c.Server.APIKey
	}
	if c.Client.PollSeconds == 0 {
		c.Client.PollSeconds = 2
	}
}

// validate checks that all fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if c.Client.BaseURL == "" {
		errs = append(errs, "client.base_url is required")
	}
	if c.Client.PollSeconds < 0 {
		errs = append(errs, "client.poll_seconds must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func fillString(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}

func fillInt(dst *int, key string) {
	if *dst != 0 {
		return
	}
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
