// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"fmt"

	"github.com/kusari-oss/vigil/internal/core/format"
	"github.com/kusari-oss/vigil/internal/router"
	"github.com/spf13/cobra"
)

type routedAction struct {
	Order int          `json:"order" yaml:"order"`
	Route router.Route `json:"route" yaml:"route"`
}

func getRouteCmd() *cobra.Command {
	routeCmd := &cobra.Command{
		Use:   "route [plan-file]",
		Short: "Show the workflow actor each action would be sent to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			useYAML, _ := cmd.Flags().GetBool("yaml")

			plan, err := format.LoadIncidentPlan(args[0], "")
			if err != nil {
				return err
			}

			routed := make([]routedAction, 0, len(plan.Plan.Actions))
			for _, action := range plan.Plan.Actions {
				route, err := router.RouteAction(action)
				if err != nil {
					return fmt.Errorf("order %d: %w", action.Order, err)
				}
				routed = append(routed, routedAction{Order: action.Order, Route: route})
			}

			text, err := format.FormatData(routed, useYAML)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	routeCmd.Flags().Bool("yaml", false, "Print as YAML instead of JSON")
	return routeCmd
}
