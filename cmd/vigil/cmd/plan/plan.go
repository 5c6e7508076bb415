// SPDX-License-Identifier: Apache-2.0

package plan

import (
	"github.com/kusari-oss/vigil/internal/core/config"
	"github.com/spf13/cobra"
)

// GetPlanCmd returns the plan command group. loadConfig is called at run time,
// after the root command has loaded the configuration.
func GetPlanCmd(loadConfig func() *config.Config) *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Execute and inspect remediation plans",
		Long:  `Commands for executing, validating and routing incident remediation plans.`,
	}

	planCmd.AddCommand(getExecuteCmd(loadConfig))
	planCmd.AddCommand(getValidateCmd(loadConfig))
	planCmd.AddCommand(getRouteCmd())
	return planCmd
}
