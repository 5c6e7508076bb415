// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kusari-oss/vigil/internal/audit"
	"github.com/kusari-oss/vigil/internal/core/models"
	"github.com/kusari-oss/vigil/internal/dispatch"
	"github.com/kusari-oss/vigil/internal/logger"
	"github.com/kusari-oss/vigil/internal/router"
	"golang.org/x/sync/errgroup"
)

// Dispatcher delivers a routed action to its workflow actor
type Dispatcher interface {
	Dispatch(ctx context.Context, incidentID, actionID string, route router.Route) (map[string]interface{}, error)
}

// Approver gates actions behind a human decision
type Approver interface {
	RequiresApproval(action models.RemediationAction) bool
	Await(ctx context.Context, incidentID, actionID string, action models.RemediationAction) (models.ApprovalDecision, error)
}

// Auditor records the outcome of each attempted action
type Auditor interface {
	LogAction(ctx context.Context, entry audit.Entry)
}

// PlanExecutor executes remediation plans action by action
type PlanExecutor struct {
	dispatcher  Dispatcher
	approver    Approver
	auditor     Auditor
	options     models.ExecutionOptions
	newActionID func() string
}

// NewPlanExecutor creates a new plan executor
func NewPlanExecutor(dispatcher Dispatcher, approver Approver, auditor Auditor, options models.ExecutionOptions) *PlanExecutor {
	return &PlanExecutor{
		dispatcher:  dispatcher,
		approver:    approver,
		auditor:     auditor,
		options:     options,
		newActionID: dispatch.NewActionID,
	}
}

// ExecutePlan runs every action in ascending order and aggregates the outcome.
// A failed action never stops the remaining ones.
func (e *PlanExecutor) ExecutePlan(ctx context.Context, incidentID string, plan models.RemediationPlan) models.PlanExecutionResult {
	actions := make([]models.RemediationAction, len(plan.Actions))
	copy(actions, plan.Actions)
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Order < actions[j].Order
	})

	result := models.PlanExecutionResult{
		IncidentID:      incidentID,
		ActionResults:   make([]models.ActionResult, 0, len(actions)),
		SuccessCriteria: plan.SuccessCriteria,
	}

	for i, action := range actions {
		logger.Info("incident %s: executing action %d/%d (order %d, %s)", incidentID, i+1, len(actions), action.Order, action.ActionType)

		actionResult := e.executeAction(ctx, incidentID, action)
		result.ActionResults = append(result.ActionResults, actionResult)

		if actionResult.Status == models.StatusCompleted {
			result.ActionsCompleted++
		} else {
			result.ActionsFailed++
		}
	}

	result.Status = models.StatusCompleted
	if result.ActionsFailed > 0 {
		result.Status = models.StatusFailed
	}

	logger.Info("incident %s: execution summary: %d completed, %d failed (out of %d total actions)",
		incidentID, result.ActionsCompleted, result.ActionsFailed, len(actions))

	return result
}

// executeAction runs approval, routing, dispatch and audit for one action
func (e *PlanExecutor) executeAction(ctx context.Context, incidentID string, action models.RemediationAction) models.ActionResult {
	start := time.Now()
	actionID := e.newActionID()

	actionResult := models.ActionResult{
		Order:      action.Order,
		ActionID:   actionID,
		ActionType: action.ActionType,
	}
	if target, ok := router.TargetFor(action.ActionType); ok {
		actionResult.Target = target
	}

	approvalRequired := action.ApprovalRequired
	if e.approver != nil {
		approvalRequired = e.approver.RequiresApproval(action)
	}

	var err error
	if approvalRequired {
		actionResult.Approval, err = e.awaitApproval(ctx, incidentID, actionID, action)
	}

	if err == nil {
		actionResult.Response, err = e.routeAndDispatch(ctx, incidentID, actionID, action)
	}

	if err != nil {
		e.handleExecutionError(&actionResult, err)
	} else {
		actionResult.Status = models.StatusCompleted
		if e.options.VerboseLogging {
			logger.Info("action %s completed", actionID)
		}
	}
	actionResult.DurationMs = time.Since(start).Milliseconds()

	// The audit write must be attempted even when the plan context is cancelled
	e.logAction(context.WithoutCancel(ctx), audit.Entry{
		IncidentID:       incidentID,
		ActionID:         actionID,
		Action:           action,
		Status:           actionResult.Status,
		Error:            actionResult.Error,
		Duration:         time.Since(start),
		ApprovalRequired: approvalRequired,
		Approval:         actionResult.Approval,
	})

	return actionResult
}

// logAction hands the entry to the auditor; a failing auditor never stops the plan
func (e *PlanExecutor) logAction(ctx context.Context, entry audit.Entry) {
	if e.auditor == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("audit: recording %s panicked: %v", entry.ActionID, r)
		}
	}()
	e.auditor.LogAction(ctx, entry)
}

// awaitApproval blocks on the gate; anything but approval is returned as an error
func (e *PlanExecutor) awaitApproval(ctx context.Context, incidentID, actionID string, action models.RemediationAction) (*models.ApprovalDecision, error) {
	if e.approver == nil {
		return nil, fmt.Errorf("action requires approval but no approval gate is configured")
	}

	decision, err := e.approver.Await(ctx, incidentID, actionID, action)
	if err != nil {
		return nil, fmt.Errorf("approval wait failed: %w", err)
	}

	switch decision.Status {
	case models.ApprovalApproved:
		return &decision, nil
	case models.ApprovalRejected:
		by := "unknown"
		if decision.DecidedBy != nil {
			by = *decision.DecidedBy
		}
		return &decision, fmt.Errorf("approval rejected by %s", by)
	default:
		return &decision, fmt.Errorf("approval timed out")
	}
}

func (e *PlanExecutor) routeAndDispatch(ctx context.Context, incidentID, actionID string, action models.RemediationAction) (map[string]interface{}, error) {
	route, err := router.RouteAction(action)
	if err != nil {
		return nil, err
	}

	if e.options.DryRun {
		logger.Info("dry run: %s would be dispatched to %s", actionID, route.Target)
	}

	return e.dispatcher.Dispatch(ctx, incidentID, actionID, route)
}

// handleExecutionError records an execution error on the result
func (e *PlanExecutor) handleExecutionError(actionResult *models.ActionResult, err error) {
	actionResult.Status = models.StatusFailed
	actionResult.Error = err.Error()

	if e.options.VerboseLogging {
		logger.Error("action %s (%s) failed: %v", actionResult.ActionID, actionResult.ActionType, err)
	} else {
		logger.Warn("action %s failed: %v", actionResult.ActionID, err)
	}
}

// ExecutePlans runs independent incidents concurrently, each plan strictly sequential.
// Results are returned in input order.
func (e *PlanExecutor) ExecutePlans(ctx context.Context, plans []models.IncidentPlan, parallelism int) []models.PlanExecutionResult {
	results := make([]models.PlanExecutionResult, len(plans))

	var g errgroup.Group
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i := range plans {
		i := i
		g.Go(func() error {
			results[i] = e.ExecutePlan(ctx, plans[i].IncidentID, plans[i].Plan)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
