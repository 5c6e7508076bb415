// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"errors"
	"fmt"

	"github.com/kusari-oss/vigil/internal/approval"
	"github.com/kusari-oss/vigil/internal/core/config"
	"github.com/kusari-oss/vigil/internal/core/format"
	"github.com/kusari-oss/vigil/internal/router"
	"github.com/spf13/cobra"
)

func getValidateCmd(loadConfig func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [plan-file...]",
		Short: "Check that plans load and every action routes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			// The configured policy decides which actions will actually wait
			var gateOpts []approval.GateOption
			if expr := loadConfig().Approval.Policy; expr != "" {
				policy, err := approval.NewPolicy(expr)
				if err != nil {
					return err
				}
				gateOpts = append(gateOpts, approval.WithPolicy(policy))
			}
			gate := approval.NewGate(nil, approval.PollOptions{}, gateOpts...)

			var problems []error
			for _, planFile := range args {
				plan, err := format.LoadIncidentPlan(planFile, "")
				if err != nil {
					problems = append(problems, err)
					continue
				}

				needApproval := 0
				invalid := 0
				for _, action := range plan.Plan.Actions {
					if _, err := router.RouteAction(action); err != nil {
						problems = append(problems, fmt.Errorf("%s: order %d: %w", planFile, action.Order, err))
						invalid++
						continue
					}
					if gate.RequiresApproval(action) {
						needApproval++
					}
				}

				if invalid == 0 {
					fmt.Fprintf(out, "%s: incident %s is valid: %d actions, %d require approval\n",
						planFile, plan.IncidentID, len(plan.Plan.Actions), needApproval)
				}
			}

			if len(problems) > 0 {
				for _, p := range problems {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %v\n", p)
				}
				return errors.Join(problems...)
			}
			return nil
		},
	}
}
