// SPDX-License-Identifier: Apache-2.0

package models

// ActionType is the closed set of remediation action kinds
type ActionType string

const (
	ActionContainment   ActionType = "containment"
	ActionRemediation   ActionType = "remediation"
	ActionCommunication ActionType = "communication"
	ActionDocumentation ActionType = "documentation"
)

// ActionTypes returns the valid action types in their declared order
func ActionTypes() []ActionType {
	return []ActionType{ActionContainment, ActionRemediation, ActionCommunication, ActionDocumentation}
}

// NoRollback is the literal plans use to say no rollback exists
const NoRollback = "N/A"

// RemediationAction represents a single action in the remediation plan
type RemediationAction struct {
	Order            int                    `json:"order" yaml:"order"`
	ActionType       ActionType             `json:"action_type" yaml:"action_type"`
	Description      string                 `json:"description" yaml:"description"`
	TargetSystem     string                 `json:"target_system" yaml:"target_system"`
	TargetAsset      *string                `json:"target_asset,omitempty" yaml:"target_asset,omitempty"`
	Params           map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
	ApprovalRequired bool                   `json:"approval_required" yaml:"approval_required"`
	RollbackSteps    *string                `json:"rollback_steps,omitempty" yaml:"rollback_steps,omitempty"`
}

// RollbackAvailable reports whether the action declares usable rollback steps
func (a RemediationAction) RollbackAvailable() bool {
	return a.RollbackSteps != nil && *a.RollbackSteps != NoRollback
}

// RemediationPlan represents the plan produced upstream of the executor
type RemediationPlan struct {
	Actions         []RemediationAction `json:"actions" yaml:"actions"`
	SuccessCriteria interface{}         `json:"success_criteria,omitempty" yaml:"success_criteria,omitempty"`
}

// IncidentPlan is a plan bound to the incident it remediates
type IncidentPlan struct {
	IncidentID string          `json:"incident_id" yaml:"incident_id"`
	Plan       RemediationPlan `json:"remediation_plan" yaml:"remediation_plan"`
}

// ApprovalStatus is the terminal state of an approval wait
type ApprovalStatus string

const (
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
	ApprovalTimeout  ApprovalStatus = "timeout"
)

// ApprovalDecision is the resolved outcome for one (incident, action) pair
type ApprovalDecision struct {
	Status    ApprovalStatus `json:"status" yaml:"status"`
	DecidedBy *string        `json:"decided_by" yaml:"decided_by"`
	DecidedAt *string        `json:"decided_at" yaml:"decided_at"`
}

// ApprovalValue is a normalized human response
type ApprovalValue string

const (
	ValueApprove  ApprovalValue = "approve"
	ValueReject   ApprovalValue = "reject"
	ValueMoreInfo ApprovalValue = "more_info"
)

// ApprovalResponseRecord is written by the webhook path and read by the poller
type ApprovalResponseRecord struct {
	IncidentID string        `json:"incident_id"`
	ActionID   *string       `json:"action_id"`
	Value      ApprovalValue `json:"value"`
	User       string        `json:"user"`
	Reason     *string       `json:"reason"`
	Timestamp  string        `json:"timestamp"`
}

// ExecutionStatus is the outcome of one action or a whole plan
type ExecutionStatus string

const (
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
)

// AuditRecord is the persisted trail entry for one attempted action
type AuditRecord struct {
	Timestamp         string          `json:"timestamp"`
	AgentName         string          `json:"agent_name"`
	IncidentID        string          `json:"incident_id"`
	ActionID          string          `json:"action_id"`
	ActionType        ActionType      `json:"action_type"`
	TargetSystem      string          `json:"target_system"`
	TargetAsset       *string         `json:"target_asset"`
	ExecutionStatus   ExecutionStatus `json:"execution_status"`
	DurationMs        int64           `json:"duration_ms"`
	RollbackAvailable bool            `json:"rollback_available"`
	ApprovalRequired  bool            `json:"approval_required"`
	ApprovedBy        *string         `json:"approved_by"`
	ApprovedAt        *string         `json:"approved_at"`
	ErrorMessage      *string         `json:"error_message"`
}

// ActionResult captures what happened to one action during a plan run
type ActionResult struct {
	Order      int                    `json:"order" yaml:"order"`
	ActionID   string                 `json:"action_id" yaml:"action_id"`
	ActionType ActionType             `json:"action_type" yaml:"action_type"`
	Target     string                 `json:"target,omitempty" yaml:"target,omitempty"`
	Status     ExecutionStatus        `json:"status" yaml:"status"`
	Error      string                 `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMs int64                  `json:"duration_ms" yaml:"duration_ms"`
	Approval   *ApprovalDecision      `json:"approval,omitempty" yaml:"approval,omitempty"`
	Response   map[string]interface{} `json:"response,omitempty" yaml:"response,omitempty"`
}

// PlanExecutionResult aggregates the results of one plan run
type PlanExecutionResult struct {
	IncidentID       string          `json:"incident_id" yaml:"incident_id"`
	Status           ExecutionStatus `json:"status" yaml:"status"`
	ActionsCompleted int             `json:"actions_completed" yaml:"actions_completed"`
	ActionsFailed    int             `json:"actions_failed" yaml:"actions_failed"`
	ActionResults    []ActionResult  `json:"action_results" yaml:"action_results"`
	SuccessCriteria  interface{}     `json:"success_criteria,omitempty" yaml:"success_criteria,omitempty"`
}

// ExecutionOptions contains options for plan execution
type ExecutionOptions struct {
	DryRun         bool
	VerboseLogging bool
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
