// SPDX-License-Identifier: Apache-2.0

package plan

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

func getExecuteCmd(loadConfig func() *config.Config) *cobra.Command {
	executeCmd := &cobra.Command{
		Use:   "execute [plan-file...]",
		Short: "Execute remediation plans",
		Long: `Execute one or more incident remediation plans. Plans run concurrently,
the actions of each plan strictly in order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			verbose, _ := cmd.Flags().GetBool("verbose")
			incident, _ := cmd.Flags().GetString("incident")
			output, _ := cmd.Flags().GetString("output")
			out := cmd.OutOrStdout()

			if incident != "" && len(args) > 1 {
				return fmt.Errorf("--incident can only be used with a single plan file")
			}

			plans := make([]models.IncidentPlan, 0, len(args))
			for _, planFile := range args {
				if verbose {
					fmt.Fprintf(out, "Loading remediation plan from: %s\n", planFile)
				}
				plan, err := format.LoadIncidentPlan(planFile, incident)
				if err != nil {
					return err
				}
				plans = append(plans, plan)
			}

			cfg := loadConfig()
			runtime, err := app.New(cfg, app.Options{DryRun: dryRun, Verbose: verbose, Out: out})
			if err != nil {
				return err
			}
			defer runtime.Close()

			if err := runtime.CheckApprovals(plans); err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintln(out, "Running in dry-run mode - no actions will be dispatched")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			results := runtime.Executor.ExecutePlans(ctx, plans, cfg.Parallelism)

			failed := 0
			for _, result := range results {
				printResult(cmd, result, verbose)
				if result.Status != models.StatusCompleted {
					failed++
				}
			}

			if output != "" {
				if err := format.WriteFile(output, results); err != nil {
					return fmt.Errorf("error writing results: %w", err)
				}
				fmt.Fprintf(out, "Results written to %s\n", output)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d plans had failed actions", failed, len(results))
			}
			return nil
		},
	}

	executeCmd.Flags().BoolP("dry-run", "d", false, "Show what would be dispatched without contacting actors")
	executeCmd.Flags().BoolP("verbose", "v", false, "Enable verbose output")
	executeCmd.Flags().String("incident", "", "Override the incident id of a single plan file")
	executeCmd.Flags().StringP("output", "o", "", "Write results to a file (.json or .yaml)")

	return executeCmd
}

func printResult(cmd *cobra.Command, result models.PlanExecutionResult, verbose bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Incident %s: %s (%d completed, %d failed)\n",
		result.IncidentID, result.Status, result.ActionsCompleted, result.ActionsFailed)

	for _, r := range result.ActionResults {
		if r.Status == models.StatusCompleted && !verbose {
			continue
		}
		line := fmt.Sprintf("  [%d] %s %s -> %s: %s", r.Order, r.ActionID, r.ActionType, r.Target, r.Status)
		if r.Error != "" {
			line += ": " + r.Error
		}
		fmt.Fprintln(out, line)
	}
}
