// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"sync"
	"time"

	"github.com/kusari-oss/vigil/internal/core/models"
)

// Memory is an in-process append-only store with the same read-latest semantics as Elasticsearch
type Memory struct {
	mu        sync.RWMutex
	audits    []models.AuditRecord
	responses []models.ApprovalResponseRecord
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{}
}

// WriteAudit appends an audit record
func (m *Memory) WriteAudit(_ context.Context, rec models.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, rec)
	return nil
}

// AppendResponse appends an approval response
func (m *Memory) AppendResponse(_ context.Context, rec models.ApprovalResponseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, rec)
	return nil
}

// LatestResponse returns the response with the newest timestamp for the pair
func (m *Memory) LatestResponse(_ context.Context, incidentID, actionID string) (*models.ApprovalResponseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *models.ApprovalResponseRecord
	var latestAt time.Time
	for i := range m.responses {
		rec := m.responses[i]
		if rec.IncidentID != incidentID {
			continue
		}
		if actionID != "" && (rec.ActionID == nil || *rec.ActionID != actionID) {
			continue
		}

		at, err := time.Parse(time.RFC3339Nano, rec.Timestamp)
		if err != nil {
			continue
		}
		// Ties resolve to the later append
		if latest == nil || !at.Before(latestAt) {
			found := rec
			latest = &found
			latestAt = at
		}
	}
	return latest, nil
}

// Audits returns a copy of every audit record written so far
func (m *Memory) Audits() []models.AuditRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.AuditRecord(nil), m.audits...)
}

// Responses returns a copy of every approval response written so far
func (m *Memory) Responses() []models.ApprovalResponseRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.ApprovalResponseRecord(nil), m.responses...)
}
