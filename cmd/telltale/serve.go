package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/telltale-dev/telltale/internal/car"
	"github.com/telltale-dev/telltale/internal/config"
	"github.com/telltale-dev/telltale/internal/llm"
	"github.com/telltale-dev/telltale/internal/schema"
	"github.com/telltale-dev/telltale/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		configPath   string
		port         int
		registryPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the vehicle state server",
		Long:  "Starts the HTTP server that owns the control registry, the authoritative vehicle state, and the telemetry simulation.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, registryPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default: environment only)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default: config)")
	cmd.Flags().StringVar(&registryPath, "registry", "", "path to a control registry file (default: built-in)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int, registryPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Server.Port
	}
	if registryPath == "" {
		registryPath = cfg.Server.RegistryPath
	}

	registry, err := loadRegistry(registryPath)
	if err != nil {
		return err
	}

	store, err := car.NewStore(car.StoreOpts{Registry: registry})
	if err != nil {
		return err
	}
	sim := car.NewSimulator(time.Now())

	srv, err := server.New(server.Opts{
		Registry:  registry,
		Store:     store,
		Simulator: sim,
		Providers: buildProviders(cfg),
		APIKey:    cfg.Server.APIKey,
		RateLimit: cfg.Server.RateLimitRPM,
		Logger:    slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil)),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	// Advance the simulation once a second so telemetry stays live even
	// when nobody polls.
	sched := cron.New()
	if _, err := sched.AddFunc("@every 1s", srv.Tick); err != nil {
		return fmt.Errorf("schedule simulation tick: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	return srv.Start(ctx, server.StartOpts{
		Port: port,
		Out:  cmd.OutOrStdout(),
	})
}

// loadRegistry loads the control registry from path, or the built-in one
// when path is empty.
func loadRegistry(path string) (*schema.Registry, error) {
	if path == "" {
		return schema.Default()
	}
	return schema.LoadFile(path)
}

// buildProviders wires every assistant backend the server can dispatch to.
// Providers with missing credentials still register; they report the missing
// key when called.
func buildProviders(cfg *config.Config) []llm.Provider {
	return []llm.Provider{
		llm.NewGemini(llm.GeminiOpts{
			APIKey:   cfg.Providers.Gemini.APIKey,
			Model:    cfg.Providers.Gemini.Model,
			Endpoint: cfg.Providers.Gemini.Endpoint,
		}),
		llm.NewAzureOpenAI(llm.AzureOpenAIOpts{
			APIKey:     cfg.Providers.Azure.APIKey,
			Endpoint:   cfg.Providers.Azure.Endpoint,
			Deployment: cfg.Providers.Azure.Deployment,
			APIVersion: cfg.Providers.Azure.APIVersion,
		}),
	}
}
