// SPDX-License-Identifier: Apache-2.0

package router

import (
	"fmt"
	"strings"

	"github.com/kusari-oss/vigil/internal/core/models"
)

// Workflow actor targets
const (
	TargetContainment = "wf-containment"
	TargetRemediation = "wf-remediation"
	TargetNotify      = "wf-notify"
	TargetTicketing   = "wf-ticketing"
)

// routes is the fixed routing table. Order matches models.ActionTypes().
var routes = map[models.ActionType]string{
	models.ActionContainment:   TargetContainment,
	models.ActionRemediation:   TargetRemediation,
	models.ActionCommunication: TargetNotify,
	models.ActionDocumentation: TargetTicketing,
}

// Route is the routing decision for one action
type Route struct {
	ActionType models.ActionType      `json:"action_type" yaml:"action_type"`
	Target     string                 `json:"target" yaml:"target"`
	Params     map[string]interface{} `json:"params" yaml:"params"`
}

// RoutingError reports an action type outside the closed set
type RoutingError struct {
	ActionType models.ActionType
}

func (e *RoutingError) Error() string {
	valid := make([]string, 0, len(routes))
	for _, t := range models.ActionTypes() {
		valid = append(valid, string(t))
	}
	return fmt.Sprintf("unknown action_type %q: valid types are %s", string(e.ActionType), strings.Join(valid, ", "))
}

// RouteAction maps an action to its workflow actor and a fully defaulted parameter set
func RouteAction(action models.RemediationAction) (Route, error) {
	target, ok := routes[action.ActionType]
	if !ok {
		return Route{}, &RoutingError{ActionType: action.ActionType}
	}

	params := action.Params
	if params == nil {
		params = map[string]interface{}{}
	}

	var targetAsset interface{}
	if action.TargetAsset != nil {
		targetAsset = *action.TargetAsset
	}

	var rollbackSteps interface{}
	if action.RollbackSteps != nil {
		rollbackSteps = *action.RollbackSteps
	}

	return Route{
		ActionType: action.ActionType,
		Target:     target,
		Params: map[string]interface{}{
			"action_type":    string(action.ActionType),
			"description":    action.Description,
			"target_system":  action.TargetSystem,
			"target_asset":   targetAsset,
			"params":         params,
			"rollback_steps": rollbackSteps,
		},
	}, nil
}

// Targets returns every workflow actor target in table order
func Targets() []string {
	targets := make([]string, 0, len(routes))
	for _, t := range models.ActionTypes() {
		targets = append(targets, routes[t])
	}
	return targets
}

// TargetFor returns the actor target for an action type
func TargetFor(actionType models.ActionType) (string, bool) {
	target, ok := routes[actionType]
	return target, ok
}
