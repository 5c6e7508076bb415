// SPDX-License-Identifier: Apache-2.0

package approval

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kusari-oss/vigil/internal/app"
	"github.com/kusari-oss/vigil/internal/core/config"
	"github.com/kusari-oss/vigil/internal/core/format"
	"github.com/kusari-oss/vigil/internal/core/models"
	"github.com/spf13/cobra"
)

// GetApprovalCmd returns the approval command group
func GetApprovalCmd(loadConfig func() *config.Config) *cobra.Command {
	approvalCmd := &cobra.Command{
		Use:   "approval",
		Short: "Inspect approval decisions",
	}
	approvalCmd.AddCommand(getPollCmd(loadConfig))
	return approvalCmd
}

func getPollCmd(loadConfig func() *config.Config) *cobra.Command {
	pollCmd := &cobra.Command{
		Use:   "poll [incident-id] [action-id]",
		Short: "Wait for the decision on one action",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			opts := cfg.PollOptions()
			if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
				opts.Timeout = timeout
			}
			useYAML, _ := cmd.Flags().GetBool("yaml")

			runtime, err := app.New(cfg, app.Options{RequireSharedStore: true})
			if err != nil {
				return err
			}
			defer runtime.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			decision, err := runtime.Poller.PollForApproval(ctx, args[0], args[1], opts)
			if err != nil {
				return err
			}

			text, err := format.FormatData(decision, useYAML)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)

			if decision.Status != models.ApprovalApproved {
				return fmt.Errorf("action %s was not approved: %s", args[1], decision.Status)
			}
			return nil
		},
	}

	pollCmd.Flags().Duration("timeout", 0, "Override approval.timeout")
	pollCmd.Flags().Bool("yaml", false, "Print as YAML instead of JSON")
	return pollCmd
}
