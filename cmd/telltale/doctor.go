package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/telltale-dev/telltale/internal/config"
	"github.com/telltale-dev/telltale/internal/llm"
)

func newDoctorCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and server health",
		Long:  "Runs diagnostic checks: config, control registry, server reachability, write credential, and assistant provider credentials.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default: environment only)")
	return cmd
}

type checkResult struct {
	name   string
	status string // "PASS", "FAIL", "WARN"
	detail string
}

func runDoctor(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Telltale Doctor")
	fmt.Fprintln(out, "===============")

	var results []checkResult

	cfg, cfgResult := checkConfig(configPath)
	results = append(results, cfgResult)

	if cfg != nil {
		results = append(results, checkRegistry(cfg))
		results = append(results, checkServer(cmd.Context(), cfg))
		results = append(results, checkAPIKey(cfg))
		results = append(results, checkGemini(cfg))
		results = append(results, checkAzure(cfg))
	}

	passed, failed, warned := 0, 0, 0
	for _, r := range results {
		printCheckResult(out, r)
		switch r.status {
		case "PASS":
			passed++
		case "FAIL":
			failed++
		case "WARN":
			warned++
		}
	}

	fmt.Fprintf(out, "\n%d passed, %d failed, %d warning\n", passed, failed, warned)

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func checkConfig(path string) (*config.Config, checkResult) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, checkResult{"Config", "FAIL", err.Error()}
	}
	detail := path
	if detail == "" {
		detail = "environment defaults"
	}
	return cfg, checkResult{"Config", "PASS", detail}
}

func checkRegistry(cfg *config.Config) checkResult {
	registry, err := loadRegistry(cfg.Server.RegistryPath)
	if err != nil {
		return checkResult{"Control registry", "FAIL", err.Error()}
	}
	source := "built-in"
	if cfg.Server.RegistryPath != "" {
		source = cfg.Server.RegistryPath
	}
	return checkResult{"Control registry", "PASS",
		fmt.Sprintf("%s: %d controls (schema v%d)", source, len(registry.Controls), registry.SchemaVersion)}
}

func checkServer(ctx context.Context, cfg *config.Config) checkResult {
	client, err := newClient(cfg)
	if err != nil {
		return checkResult{"Server", "FAIL", err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := client.State(ctx); err != nil {
		return checkResult{"Server", "FAIL", fmt.Sprintf("%s unreachable: %v", cfg.Client.BaseURL, err)}
	}
	return checkResult{"Server", "PASS", fmt.Sprintf("%s reachable", cfg.Client.BaseURL)}
}

func checkAPIKey(cfg *config.Config) checkResult {
	if cfg.Server.APIKey == "" {
		return checkResult{"API key", "WARN", "not set; mutating routes are open"}
	}
	return checkResult{"API key", "PASS", "configured"}
}

func checkGemini(cfg *config.Config) checkResult {
	if cfg.Providers.Gemini.APIKey == "" {
		return checkResult{"Gemini provider", "WARN", "GEMINI_API_KEY not set"}
	}
	model := cfg.Providers.Gemini.Model
	if model == "" {
		model = llm.DefaultGeminiModel
	}
	return checkResult{"Gemini provider", "PASS", fmt.Sprintf("key configured (model %s)", model)}
}

func checkAzure(cfg *config.Config) checkResult {
	var missing []string
	if cfg.Providers.Azure.APIKey == "" {
		missing = append(missing, "AZURE_OPENAI_API_KEY")
	}
	if cfg.Providers.Azure.Endpoint == "" {
		missing = append(missing, "AZURE_OPENAI_ENDPOINT")
	}
	if cfg.Providers.Azure.Deployment == "" {
		missing = append(missing, "AZURE_OPENAI_DEPLOYMENT")
	}
	if len(missing) > 0 {
		return checkResult{"Azure provider", "WARN", "missing " + strings.Join(missing, ", ")}
	}
	return checkResult{"Azure provider", "PASS", fmt.Sprintf("deployment %s", cfg.Providers.Azure.Deployment)}
}

func printCheckResult(out io.Writer, r checkResult) {
	fmt.Fprintf(out, "[%s] %s: %s\n", r.status, r.name, r.detail)
}
