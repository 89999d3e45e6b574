package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fullYAML = `
server:
  port: 8090
  api_key: server-secret
  rate_limit_rpm: 12
  registry_path: /etc/telltale/controls.json

client:
  base_url: http://dash.example.com:8090
  api_key: client-secret
  poll_seconds: 5

providers:
  gemini:
    api_key: gm-key
    model: gemini-3-flash-preview
    endpoint: https://example.com/v1beta/models
  azure:
    api_key: az-key
    endpoint: https://myorg.openai.azure.com
    deployment: gpt-4o
    api_version: 2024-12-01-preview
`

const minimalYAML = `
server:
  api_key: hunter2
`

// clearEnv blanks every environment variable the loader consults so test
// assertions are not polluted by the host environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TELLTALE_API_KEY", "TELLTALE_REGISTRY", "TELLTALE_SERVER_URL",
		"PORT", "LLM_RATE_LIMIT_RPM",
		"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_API_ENDPOINT",
		"AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT",
		"AZURE_OPENAI_DEPLOYMENT", "AZURE_OPENAI_API_VERSION",
	} {
		t.Setenv(key, "")
	}
}

func TestParse_FullConfig(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8090)
	}
	if cfg.Server.APIKey != "server-secret" {
		t.Errorf("Server.APIKey = %q, want %q", cfg.Server.APIKey, "server-secret")
	}
	if cfg.Server.RateLimitRPM != 12 {
		t.Errorf("Server.RateLimitRPM = %d, want %d", cfg.Server.RateLimitRPM, 12)
	}
	if cfg.Server.RegistryPath != "/etc/telltale/controls.json" {
		t.Errorf("Server.RegistryPath = %q, want %q", cfg.Server.RegistryPath, "/etc/telltale/controls.json")
	}
	if cfg.Client.BaseURL != "http://dash.example.com:8090" {
		t.Errorf("Client.BaseURL = %q, want %q", cfg.Client.BaseURL, "http://dash.example.com:8090")
	}
	if cfg.Client.APIKey != "client-secret" {
		t.Errorf("Client.APIKey = %q, want %q", cfg.Client.APIKey, "client-secret")
	}
	if cfg.Client.PollSeconds != 5 {
		t.Errorf("Client.PollSeconds = %d, want %d", cfg.Client.PollSeconds, 5)
	}
	if cfg.Providers.Gemini.APIKey != "gm-key" {
		t.Errorf("Providers.Gemini.APIKey = %q, want %q", cfg.Providers.Gemini.APIKey, "gm-key")
	}
	if cfg.Providers.Gemini.Model != "gemini-3-flash-preview" {
		t.Errorf("Providers.Gemini.Model = %q, want %q", cfg.Providers.Gemini.Model, "gemini-3-flash-preview")
	}
	if cfg.Providers.Azure.Deployment != "gpt-4o" {
		t.Errorf("Providers.Azure.Deployment = %q, want %q", cfg.Providers.Azure.Deployment, "gpt-4o")
	}
	if cfg.Providers.Azure.APIVersion != "2024-12-01-preview" {
		t.Errorf("Providers.Azure.APIVersion = %q, want %q", cfg.Providers.Azure.APIVersion, "2024-12-01-preview")
	}
}

func TestParse_MinimalConfig_AppliesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want %d (default)", cfg.Server.Port, 5000)
	}
	if cfg.Server.RateLimitRPM != 5 {
		t.Errorf("Server.RateLimitRPM = %d, want %d (default)", cfg.Server.RateLimitRPM, 5)
	}
	if cfg.Client.BaseURL != "http://localhost:5000" {
		t.Errorf("Client.BaseURL = %q, want %q (derived from port)", cfg.Client.BaseURL, "http://localhost:5000")
	}
	if cfg.Client.APIKey != "hunter2" {
		t.Errorf("Client.APIKey = %q, want %q (derived from server key)", cfg.Client.APIKey, "hunter2")
	}
	if cfg.Client.PollSeconds != 2 {
		t.Errorf("Client.PollSeconds = %d, want %d (default)", cfg.Client.PollSeconds, 2)
	}
}

func TestParse_BaseURLFollowsCustomPort(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse([]byte("server:\n  port: 8781\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Client.BaseURL != "http://localhost:8781" {
		t.Errorf("Client.BaseURL = %q, want %q", cfg.Client.BaseURL, "http://localhost:8781")
	}
}

func TestParse_ExplicitClientKey_NotOverridden(t *testing.T) {
	clearEnv(t)
	yaml := `
server:
  api_key: server-key
client:
  api_key: other-key
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Client.APIKey != "other-key" {
		t.Errorf("Client.APIKey = %q, want %q (should not be overridden)", cfg.Client.APIKey, "other-key")
	}
}

func TestParse_NegativeRateLimitDisables(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse([]byte("server:\n  rate_limit_rpm: -1\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.RateLimitRPM != -1 {
		t.Errorf("Server.RateLimitRPM = %d, want -1 (negative passes through)", cfg.Server.RateLimitRPM)
	}
}

func TestParse_EnvFillsUnsetFields(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELLTALE_API_KEY", "env-key")
	t.Setenv("PORT", "7001")
	t.Setenv("LLM_RATE_LIMIT_RPM", "9")
	t.Setenv("GEMINI_API_KEY", "env-gm")
	t.Setenv("GEMINI_MODEL", "gemini-env")
	t.Setenv("AZURE_OPENAI_API_KEY", "env-az")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://env.openai.azure.com")
	t.Setenv("AZURE_OPENAI_DEPLOYMENT", "env-deploy")

	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.APIKey != "env-key" {
		t.Errorf("Server.APIKey = %q, want %q", cfg.Server.APIKey, "env-key")
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 7001)
	}
	if cfg.Server.RateLimitRPM != 9 {
		t.Errorf("Server.RateLimitRPM = %d, want %d", cfg.Server.RateLimitRPM, 9)
	}
	if cfg.Providers.Gemini.APIKey != "env-gm" {
		t.Errorf("Providers.Gemini.APIKey = %q, want %q", cfg.Providers.Gemini.APIKey, "env-gm")
	}
	if cfg.Providers.Gemini.Model != "gemini-env" {
		t.Errorf("Providers.Gemini.Model = %q, want %q", cfg.Providers.Gemini.Model, "gemini-env")
	}
	if cfg.Providers.Azure.Deployment != "env-deploy" {
		t.Errorf("Providers.Azure.Deployment = %q, want %q", cfg.Providers.Azure.Deployment, "env-deploy")
	}
	if cfg.Client.BaseURL != "http://localhost:7001" {
		t.Errorf("Client.BaseURL = %q, want %q (derived from env port)", cfg.Client.BaseURL, "http://localhost:7001")
	}
}

func TestParse_FileWinsOverEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELLTALE_API_KEY", "env-key")
	t.Setenv("PORT", "7001")

	cfg, err := Parse([]byte("server:\n  port: 8090\n  api_key: file-key\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.APIKey != "file-key" {
		t.Errorf("Server.APIKey = %q, want %q (file should win)", cfg.Server.APIKey, "file-key")
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("Server.Port = %d, want %d (file should win)", cfg.Server.Port, 8090)
	}
}

func TestParse_MalformedEnvPortIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-number")

	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want %d (default)", cfg.Server.Port, 5000)
	}
}

func TestParse_PortOutOfRange(t *testing.T) {
	clearEnv(t)
	_, err := Parse([]byte("server:\n  port: 70000\n"))
	if err == nil {
		t.Fatal("expected error for out-of-range port")
	}
	if !strings.Contains(err.Error(), "server.port 70000 is out of range") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "server.port 70000 is out of range")
	}
}

func TestParse_NegativePollSeconds(t *testing.T) {
	clearEnv(t)
	_, err := Parse([]byte("client:\n  poll_seconds: -3\n"))
	if err == nil {
		t.Fatal("expected error for negative poll interval")
	}
	if !strings.Contains(err.Error(), "client.poll_seconds must not be negative") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "client.poll_seconds must not be negative")
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	clearEnv(t)
	_, err := Parse([]byte(":::invalid"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "config: parse:") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: parse:")
	}
}

func TestDefault_NoFileNoEnv(t *testing.T) {
	clearEnv(t)
	cfg, err := Default()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 5000)
	}
	if cfg.Server.APIKey != "" {
		t.Errorf("Server.APIKey = %q, want empty", cfg.Server.APIKey)
	}
	if cfg.Server.RateLimitRPM != 5 {
		t.Errorf("Server.RateLimitRPM = %d, want %d", cfg.Server.RateLimitRPM, 5)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.APIKey != "hunter2" {
		t.Errorf("Server.APIKey = %q, want %q", cfg.Server.APIKey, "hunter2")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	clearEnv(t)
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: read")
	}
}

// --- Fixture-based tests using testdata/ files ---

func TestLoad_FullFixture(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("testdata/valid_full.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8090)
	}
	if cfg.Providers.Gemini.APIKey != "gm-key" {
		t.Errorf("Providers.Gemini.APIKey = %q, want %q", cfg.Providers.Gemini.APIKey, "gm-key")
	}
}

func TestLoad_InvalidYAMLFixture(t *testing.T) {
	clearEnv(t)
	_, err := Load("testdata/invalid.yaml")
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "config: parse:") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: parse:")
	}
}
