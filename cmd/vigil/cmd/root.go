// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/kusari-oss/vigil/cmd/vigil/cmd/approval"
	"github.com/kusari-oss/vigil/cmd/vigil/cmd/plan"
	"github.com/kusari-oss/vigil/cmd/vigil/cmd/webhook"
	"github.com/kusari-oss/vigil/internal/core/config"
	"github.com/kusari-oss/vigil/internal/logger"
	"github.com/kusari-oss/vigil/internal/version"
	"github.com/spf13/cobra"
)

var (
	// Configuration path
	configFile string

	// Log level override
	logLevel string

	// Loaded configuration
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Vigil - Security Incident Automated Response Executor",
	Long: `Vigil executes remediation plans for security incidents. Each action is
routed to its workflow actor, gated behind human approval when required,
and recorded in the audit trail.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version.Version, version.Commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		cfg = loaded

		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger.SetLevel(cfg.LogLevel)
		return nil
	},
}

// currentConfig hands subcommands the configuration loaded by the root command
func currentConfig() *config.Config {
	if cfg == nil {
		return config.NewDefaultConfig()
	}
	return cfg
}

// configPath is the file the webhook server watches for secret rotation
func configPath() string {
	if configFile != "" {
		return configFile
	}
	path, err := config.DefaultConfigFilePath()
	if err != nil {
		return ""
	}
	return path
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default $VIGIL_HOME/.vigil/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(plan.GetPlanCmd(currentConfig))
	rootCmd.AddCommand(webhook.GetWebhookCmd(currentConfig, configPath))
	rootCmd.AddCommand(approval.GetApprovalCmd(currentConfig))
}
