// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"

	"github.com/kusari-oss/vigil/internal/core/models"
	"github.com/kusari-oss/vigil/internal/dispatch"
	"github.com/stretchr/testify/mock"
)

// MockActor provides a mock workflow actor
type MockActor struct {
	mock.Mock
}

// Deliver mocks the Deliver method
func (m *MockActor) Deliver(ctx context.Context, env dispatch.Envelope) (map[string]interface{}, error) {
	args := m.Called(ctx, env)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

// MockResponseStore mocks the approval-response store used by both approval paths
type MockResponseStore struct {
	mock.Mock
}

// AppendResponse mocks the AppendResponse method
func (m *MockResponseStore) AppendResponse(ctx context.Context, rec models.ApprovalResponseRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// LatestResponse mocks the LatestResponse method
func (m *MockResponseStore) LatestResponse(ctx context.Context, incidentID, actionID string) (*models.ApprovalResponseRecord, error) {
	args := m.Called(ctx, incidentID, actionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ApprovalResponseRecord), args.Error(1)
}

// MockAuditWriter mocks the audit store
type MockAuditWriter struct {
	mock.Mock
}

// WriteAudit mocks the WriteAudit method
func (m *MockAuditWriter) WriteAudit(ctx context.Context, rec models.AuditRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// CompletedResponse returns a contract-valid actor response for the envelope
func CompletedResponse(env dispatch.Envelope) map[string]interface{} {
	return map[string]interface{}{
		"status":    "completed",
		"action_id": env.Payload.ActionID,
	}
}
