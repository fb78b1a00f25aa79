// Package cli wires the cobra command tree that drives the spider.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/workspace-spider/internal/adapters/driven/config/file"
	"github.com/custodia-labs/workspace-spider/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driven"
	"github.com/custodia-labs/workspace-spider/internal/core/ports/driving"
	"github.com/custodia-labs/workspace-spider/internal/core/services"
	"github.com/custodia-labs/workspace-spider/internal/logger"
)

// version is overridden at build time via ldflags.
var version = "dev"

// Services consumed by the commands. The ensure helpers wire the real
// implementations on first use; tests swap in mocks.
var (
	scannerService driving.Scanner
	sessionService driving.Sessions
)

// Shared handles behind the services.
var (
	appConfig    *file.Config
	sessionStore driven.SessionStore
)

var (
	verbose   bool
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "spider",
	Short: "Workspace artifact discovery for Confluence and Jira",
	Long: `spider walks Atlassian workspaces and maps what lives where.

Starting from Confluence spaces and a Jira issue search it follows
containment, attachment and cross-product links until the reachable
artifact graph is captured, then stores the session for reporting,
export and resumption.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "",
		"configuration directory (default ~/.spider)")
}

// Execute runs the CLI and releases held resources afterwards.
// Cancelling ctx aborts a running scan; the partial session is kept.
func Execute(ctx context.Context) error {
	defer func() {
		if sessionStore != nil {
			sessionStore.Close() //nolint:errcheck
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig loads the TOML configuration once per invocation.
func loadConfig() (*file.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	cfg, err := file.Load(configDir)
	if err != nil {
		return nil, err
	}
	appConfig = cfg
	return appConfig, nil
}

// ensureStore opens the session store on first use.
func ensureStore() (driven.SessionStore, error) {
	if sessionStore != nil {
		return sessionStore, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := sqlite.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	sessionStore = store
	return sessionStore, nil
}

// ensureSessions wires the session history service on first use.
func ensureSessions() (driving.Sessions, error) {
	if sessionService != nil {
		return sessionService, nil
	}
	store, err := ensureStore()
	if err != nil {
		return nil, err
	}
	svc, err := services.NewSessions(store)
	if err != nil {
		return nil, err
	}
	sessionService = svc
	return sessionService, nil
}
