// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"time"

	"github.com/kusari-oss/vigil/internal/core/models"
	"github.com/kusari-oss/vigil/internal/logger"
)

// DefaultAgentName identifies this executor in audit records
const DefaultAgentName = "vigil-executor"

// Writer persists audit records
type Writer interface {
	WriteAudit(ctx context.Context, rec models.AuditRecord) error
}

// Entry is the outcome of one attempted action
type Entry struct {
	IncidentID string
	ActionID   string
	Action     models.RemediationAction
	Status     models.ExecutionStatus
	Error      string
	Duration   time.Duration
	// ApprovalRequired is the effective requirement, after policy escalation
	ApprovalRequired bool
	Approval         *models.ApprovalDecision
}

// Logger writes one audit record per attempted action, best effort
type Logger struct {
	writer    Writer
	agentName string
	now       func() time.Time
}

// NewLogger creates an audit logger
func NewLogger(writer Writer, agentName string) *Logger {
	if agentName == "" {
		agentName = DefaultAgentName
	}
	return &Logger{writer: writer, agentName: agentName, now: time.Now}
}

// BuildRecord constructs the audit record for an entry
func (l *Logger) BuildRecord(entry Entry) models.AuditRecord {
	rec := models.AuditRecord{
		Timestamp:         l.now().UTC().Format(time.RFC3339Nano),
		AgentName:         l.agentName,
		IncidentID:        entry.IncidentID,
		ActionID:          entry.ActionID,
		ActionType:        entry.Action.ActionType,
		TargetSystem:      entry.Action.TargetSystem,
		TargetAsset:       entry.Action.TargetAsset,
		ExecutionStatus:   entry.Status,
		DurationMs:        entry.Duration.Milliseconds(),
		RollbackAvailable: entry.Action.RollbackAvailable(),
		ApprovalRequired:  entry.ApprovalRequired,
	}

	// Rejecters are recorded in the approval index, never as approvers
	if entry.Approval != nil && entry.Approval.Status == models.ApprovalApproved {
		rec.ApprovedBy = entry.Approval.DecidedBy
		rec.ApprovedAt = entry.Approval.DecidedAt
	}
	if entry.Error != "" {
		rec.ErrorMessage = models.StringPtr(entry.Error)
	}
	return rec
}

// LogAction persists the record for an entry. Failures are logged and discarded.
func (l *Logger) LogAction(ctx context.Context, entry Entry) {
	rec := l.BuildRecord(entry)

	if l.writer == nil {
		logger.Warn("audit: no writer configured, dropping record for %s", rec.ActionID)
		return
	}

	if err := l.writer.WriteAudit(ctx, rec); err != nil {
		logger.Warn("audit: failed to write record for %s (incident %s): %v", rec.ActionID, rec.IncidentID, err)
		return
	}
	logger.Debug("audit: recorded %s as %s", rec.ActionID, rec.ExecutionStatus)
}
