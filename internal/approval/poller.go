// SPDX-License-Identifier: Apache-2.0

package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/kusari-oss/vigil/internal/core/models"
	"github.com/kusari-oss/vigil/internal/logger"
)

// ResponseReader reads the most recent approval response for an action
type ResponseReader interface {
	LatestResponse(ctx context.Context, incidentID, actionID string) (*models.ApprovalResponseRecord, error)
}

// PollOptions bounds one approval wait
type PollOptions struct {
	Interval  time.Duration
	Timeout   time.Duration
	MaxErrors int
}

// PollError is returned once the consecutive query failure budget is spent
type PollError struct {
	Count int
	Last  error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("approval polling aborted after %d consecutive errors: %v", e.Count, e.Last)
}

func (e *PollError) Unwrap() error {
	return e.Last
}

// Poller waits for a terminal decision by repeatedly reading the response store
type Poller struct {
	store ResponseReader
	now   func() time.Time
}

// NewPoller creates a poller over the given store
func NewPoller(store ResponseReader) *Poller {
	return &Poller{store: store, now: time.Now}
}

// PollForApproval blocks until the action is approved, rejected or the timeout elapses
func (p *Poller) PollForApproval(ctx context.Context, incidentID, actionID string, opts PollOptions) (models.ApprovalDecision, error) {
	maxErrors := opts.MaxErrors
	if maxErrors < 1 {
		maxErrors = 1
	}

	start := p.now()
	consecutiveErrors := 0

	for {
		rec, err := p.store.LatestResponse(ctx, incidentID, actionID)
		if err != nil {
			consecutiveErrors++
			logger.Warn("approval: poll %d/%d for %s failed: %v", consecutiveErrors, maxErrors, actionID, err)
			if consecutiveErrors >= maxErrors {
				return models.ApprovalDecision{}, &PollError{Count: consecutiveErrors, Last: err}
			}
		} else {
			consecutiveErrors = 0
			if decision, ok := terminalDecision(rec); ok {
				return decision, nil
			}
		}

		elapsed := p.now().Sub(start)
		if elapsed >= opts.Timeout {
			logger.Info("approval: no decision for %s within %s", actionID, opts.Timeout)
			return models.ApprovalDecision{Status: models.ApprovalTimeout}, nil
		}

		// Never sleep past the deadline
		wait := opts.Interval
		if remaining := opts.Timeout - elapsed; remaining < wait {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return models.ApprovalDecision{}, ctx.Err()
		case <-timer.C:
		}
	}
}

// terminalDecision converts a stored response into a decision when it is final
func terminalDecision(rec *models.ApprovalResponseRecord) (models.ApprovalDecision, bool) {
	if rec == nil {
		return models.ApprovalDecision{}, false
	}

	var status models.ApprovalStatus
	switch rec.Value {
	case models.ValueApprove, "approved":
		status = models.ApprovalApproved
	case models.ValueReject, "rejected":
		status = models.ApprovalRejected
	default:
		return models.ApprovalDecision{}, false
	}

	return models.ApprovalDecision{
		Status:    status,
		DecidedBy: models.StringPtr(rec.User),
		DecidedAt: models.StringPtr(rec.Timestamp),
	}, true
}
