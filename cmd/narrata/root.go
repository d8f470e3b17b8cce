package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/narrata/narrata/internal/api"
	"github.com/narrata/narrata/internal/config"
	"github.com/narrata/narrata/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	serverURL    string
	tokenFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "narrata",
	Short: "Client for the Narrata book entity-extraction service",
	Long: `Narrata manages your uploaded books, lets you review which parts of a
book are narrative content, and tracks the server-side entity-extraction
job until its results are ready.

The workflow:
  - Review the table of contents and reclassify parts (toc)
  - Trigger extraction and watch its progress (extract)
  - Browse the extracted entities ranked by evidence (entities)`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.narrata/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "narrata home directory (default: ~/.narrata)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&serverURL, "server", "", "server URL (overrides config)",
	)
	rootCmd.PersistentFlags().StringVar(
		&tokenFlag, "token", "", "bearer token (overrides config)",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the configuration manager for the current invocation.
func loadConfig() (*config.Manager, error) {
	cm, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cm, nil
}

// newService builds the typed API client from config and flags.
func newService() (*api.Service, *config.Config, error) {
	cm, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	cfg := cm.Get()

	url := cfg.Server.URL
	if serverURL != "" {
		url = serverURL
	}
	token := cfg.ResolveToken()
	if tokenFlag != "" {
		token = tokenFlag
	}

	client := api.NewClient(url, api.WithToken(token), api.WithTimeout(cfg.Timeout()))
	retries := uint(0)
	if cfg.Server.MaxRetries > 0 {
		retries = uint(cfg.Server.MaxRetries)
	}
	return api.NewService(client, retries), cfg, nil
}
