// SPDX-License-Identifier: Apache-2.0

package approval_test

import (
	"testing"

	"github.com/kusari-oss/vigil/internal/approval"
	"github.com/kusari-oss/vigil/internal/core/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyEscalates(t *testing.T) {
	action := models.RemediationAction{
		Order:        2,
		ActionType:   models.ActionRemediation,
		Description:  "Roll back payments deployment",
		TargetSystem: "kubernetes",
		TargetAsset:  models.StringPtr("payments-api"),
		Params:       map[string]interface{}{"namespace": "prod"},
	}

	tests := []struct {
		name       string
		expression string
		expected   bool
		wantErr    bool
	}{
		{name: "type match", expression: "action.action_type == 'remediation'", expected: true},
		{name: "type mismatch", expression: "action.action_type == 'containment'", expected: false},
		{name: "nested params", expression: "action.params.namespace == 'prod' && action.target_system == 'kubernetes'", expected: true},
		{name: "no rollback", expression: "!action.rollback_available", expected: true},
		{name: "order comparison", expression: "action.order > 5", expected: false},
		{name: "asset membership", expression: "action.target_asset in ['payments-api', 'ledger']", expected: true},
		{name: "missing key", expression: "action.params.cluster == 'eu'", wantErr: true},
		{name: "non-boolean result", expression: "action.description", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, err := approval.NewPolicy(tt.expression)
			require.NoError(t, err)

			result, err := policy.Escalates(action)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestNewPolicyInvalidExpression(t *testing.T) {
	_, err := approval.NewPolicy("action.action_type = 'containment'")
	assert.Error(t, err)
}
