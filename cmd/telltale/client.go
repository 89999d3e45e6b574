package main

import (
	"context"
	"fmt"

	"github.com/telltale-dev/telltale/internal/api"
	"github.com/telltale-dev/telltale/internal/config"
	"github.com/telltale-dev/telltale/internal/session"
)

// loadConfig reads the config file at path, or builds one from environment
// variables and defaults when no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

// newClient builds an API client for the configured server.
func newClient(cfg *config.Config) (*api.Client, error) {
	return api.NewClient(api.ClientOpts{
		BaseURL: cfg.Client.BaseURL,
		APIKey:  cfg.Client.APIKey,
	})
}

// newSyncSession fetches the control registry from the server and returns a
// session whose state mirror has been refreshed once.
func newSyncSession(ctx context.Context, cfg *config.Config) (*session.Session, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	registry, err := client.Controls(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch controls from %s: %w", cfg.Client.BaseURL, err)
	}
	sess, err := session.New(session.Opts{Registry: registry, Remote: client})
	if err != nil {
		return nil, err
	}
	if err := sess.RefreshState(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}
