// SPDX-License-Identifier: Apache-2.0

package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kusari-oss/vigil/internal/app"
	"github.com/kusari-oss/vigil/internal/core/config"
	"github.com/kusari-oss/vigil/internal/logger"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// GetWebhookCmd returns the webhook command group
func GetWebhookCmd(loadConfig func() *config.Config, configPath func() string) *cobra.Command {
	webhookCmd := &cobra.Command{
		Use:   "webhook",
		Short: "Receive interactive approval callbacks",
	}
	webhookCmd.AddCommand(getServeCmd(loadConfig, configPath))
	return webhookCmd
}

func getServeCmd(loadConfig func() *config.Config, configPath func() string) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the signed approval callback endpoint",
		Long: `Serve the approval callback endpoint. Each verified approve or reject
is appended to the approval index, where a waiting executor picks it up.
The signing secret is reloaded whenever the config file changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
				cfg.Webhook.Listen = listen
			}
			if cfg.SigningSecret == "" {
				return fmt.Errorf("a signing secret is required: set signing_secret or %s", config.EnvSigningSecret)
			}

			runtime, err := app.New(cfg, app.Options{RequireSharedStore: true})
			if err != nil {
				return err
			}
			defer runtime.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hook := runtime.Webhook()
			if path := configPath(); path != "" {
				err := config.Watch(ctx, path, func(updated *config.Config) {
					if updated.SigningSecret != "" {
						hook.SetSecret(updated.SigningSecret)
						logger.Info("webhook: signing secret reloaded")
					}
				})
				if err != nil {
					logger.Warn("webhook: config watch disabled: %v", err)
				}
			}

			mux := http.NewServeMux()
			mux.Handle(cfg.Webhook.Path, hook)
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			server := &http.Server{
				Addr:              cfg.Webhook.Listen,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("webhook: listening on %s%s", cfg.Webhook.Listen, cfg.Webhook.Path)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("webhook server failed: %w", err)
			case <-ctx.Done():
			}

			logger.Info("webhook: shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	serveCmd.Flags().String("listen", "", "Listen address (overrides webhook.listen)")
	return serveCmd
}
