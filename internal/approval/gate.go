// SPDX-License-Identifier: Apache-2.0

package approval

import (
	"context"

	"github.com/kusari-oss/vigil/internal/core/models"
	"github.com/kusari-oss/vigil/internal/dispatch"
	"github.com/kusari-oss/vigil/internal/logger"
)

// Requester announces a pending approval to humans
type Requester interface {
	RequestApproval(ctx context.Context, incidentID, actionID string, action models.RemediationAction) error
}

// Gate decides whether an action may proceed
type Gate struct {
	poller    *Poller
	options   PollOptions
	policy    *Policy
	requester Requester
}

// GateOption configures a Gate
type GateOption func(*Gate)

// WithPolicy adds an escalation policy
func WithPolicy(policy *Policy) GateOption {
	return func(g *Gate) {
		g.policy = policy
	}
}

// WithRequester announces each approval wait before polling starts
func WithRequester(requester Requester) GateOption {
	return func(g *Gate) {
		g.requester = requester
	}
}

// NewGate creates a gate that waits on the poller with the given options
func NewGate(poller *Poller, options PollOptions, opts ...GateOption) *Gate {
	g := &Gate{poller: poller, options: options}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RequiresApproval reports whether the action must wait for a human.
// The policy can only add a requirement, and a policy error counts as requiring approval.
func (g *Gate) RequiresApproval(action models.RemediationAction) bool {
	if action.ApprovalRequired {
		return true
	}
	if g.policy == nil {
		return false
	}

	escalate, err := g.policy.Escalates(action)
	if err != nil {
		logger.Warn("approval: policy %q failed for order %d, requiring approval: %v", g.policy.Expression(), action.Order, err)
		return true
	}
	return escalate
}

// Await announces the request if configured and blocks until a terminal decision
func (g *Gate) Await(ctx context.Context, incidentID, actionID string, action models.RemediationAction) (models.ApprovalDecision, error) {
	if g.requester != nil {
		if err := g.requester.RequestApproval(ctx, incidentID, actionID, action); err != nil {
			logger.Warn("approval: failed to announce request for %s, polling anyway: %v", actionID, err)
		}
	}

	logger.Info("approval: waiting for decision on %s (incident %s)", actionID, incidentID)
	return g.poller.PollForApproval(ctx, incidentID, actionID, g.options)
}

// NotifyRequester posts approval requests through the notification actor
type NotifyRequester struct {
	client *dispatch.Client
}

// NewNotifyRequester creates a requester sending through client
func NewNotifyRequester(client *dispatch.Client) *NotifyRequester {
	return &NotifyRequester{client: client}
}

// RequestApproval sends the approval request envelope to wf-notify
func (n *NotifyRequester) RequestApproval(ctx context.Context, incidentID, actionID string, action models.RemediationAction) error {
	env := dispatch.NewApprovalRequestEnvelope(n.client.AgentID(), incidentID, actionID, action)
	_, err := n.client.Send(ctx, env)
	return err
}
