// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kusari-oss/vigil/internal/core/models"
	"github.com/kusari-oss/vigil/internal/core/schema"
	"github.com/kusari-oss/vigil/internal/router"
)

// Callback token prefixes carried on approval buttons
const (
	ApproveTokenPrefix = "vigil_approve_"
	RejectTokenPrefix  = "vigil_reject_"
	InfoTokenPrefix    = "vigil_info_"
)

// Payload is the task description delivered to a workflow actor
type Payload struct {
	Task          string                 `json:"task"`
	IncidentID    string                 `json:"incident_id"`
	ActionID      string                 `json:"action_id"`
	Description   string                 `json:"description"`
	TargetSystem  string                 `json:"target_system"`
	TargetAsset   interface{}            `json:"target_asset"`
	Params        map[string]interface{} `json:"params"`
	RollbackSteps interface{}            `json:"rollback_steps"`
}

// Envelope is the correlated message sent to a workflow actor
type Envelope struct {
	MessageID     string  `json:"message_id"`
	From          string  `json:"from"`
	To            string  `json:"to"`
	CorrelationID string  `json:"correlation_id"`
	Timestamp     string  `json:"timestamp"`
	Payload       Payload `json:"payload"`
}

var tasks = map[models.ActionType]string{
	models.ActionContainment:   schema.TaskContain,
	models.ActionRemediation:   schema.TaskRemediate,
	models.ActionCommunication: schema.TaskNotify,
	models.ActionDocumentation: schema.TaskDocument,
}

// TaskFor returns the payload task for an action type
func TaskFor(actionType models.ActionType) (string, error) {
	task, ok := tasks[actionType]
	if !ok {
		return "", &router.RoutingError{ActionType: actionType}
	}
	return task, nil
}

// NewEnvelope builds the request envelope for a routed action
func NewEnvelope(from, incidentID, actionID string, route router.Route) (Envelope, error) {
	task, err := TaskFor(route.ActionType)
	if err != nil {
		return Envelope{}, err
	}

	description, _ := route.Params["description"].(string)
	targetSystem, _ := route.Params["target_system"].(string)
	params, _ := route.Params["params"].(map[string]interface{})
	if params == nil {
		params = map[string]interface{}{}
	}

	return Envelope{
		MessageID:     uuid.NewString(),
		From:          from,
		To:            route.Target,
		CorrelationID: incidentID,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Payload: Payload{
			Task:          task,
			IncidentID:    incidentID,
			ActionID:      actionID,
			Description:   description,
			TargetSystem:  targetSystem,
			TargetAsset:   route.Params["target_asset"],
			Params:        params,
			RollbackSteps: route.Params["rollback_steps"],
		},
	}, nil
}

// NewApprovalRequestEnvelope builds the message asking a human to approve an action.
// Button tokens and values use the shape the approval webhook parses back.
func NewApprovalRequestEnvelope(from, incidentID, actionID string, action models.RemediationAction) Envelope {
	var targetAsset interface{}
	if action.TargetAsset != nil {
		targetAsset = *action.TargetAsset
	}

	return Envelope{
		MessageID:     uuid.NewString(),
		From:          from,
		To:            router.TargetNotify,
		CorrelationID: incidentID,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Payload: Payload{
			Task:         schema.TaskRequestApproval,
			IncidentID:   incidentID,
			ActionID:     actionID,
			Description:  action.Description,
			TargetSystem: action.TargetSystem,
			TargetAsset:  targetAsset,
			Params: map[string]interface{}{
				"action_type": string(action.ActionType),
				"buttons": []interface{}{
					map[string]interface{}{"action_id": ApproveTokenPrefix + incidentID, "value": fmt.Sprintf("approved|%s", actionID)},
					map[string]interface{}{"action_id": RejectTokenPrefix + incidentID, "value": fmt.Sprintf("rejected|%s", actionID)},
					map[string]interface{}{"action_id": InfoTokenPrefix + incidentID, "value": fmt.Sprintf("more_info|%s", actionID)},
				},
			},
		},
	}
}
