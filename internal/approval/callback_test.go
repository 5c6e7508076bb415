// SPDX-License-Identifier: Apache-2.0

package approval

import (
	"net/url"
	"testing"

	"github.com/kusari-oss/vigil/internal/core/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blockActionsJSON = `{
	"type": "block_actions",
	"user": {"id": "U024BE7LH", "username": "@sre-oncall", "name": "sre"},
	"actions": [{"action_id": "vigil_approve_INC-2026-0042", "value": "approved|ACT-2026-ABCDE"}]
}`

func TestParseCallback(t *testing.T) {
	t.Run("form encoded payload", func(t *testing.T) {
		body := "payload=" + url.QueryEscape(blockActionsJSON)
		cb, err := ParseCallback([]byte(body))
		require.NoError(t, err)
		assert.Equal(t, "vigil_approve_INC-2026-0042", cb.Token)
		assert.Equal(t, "approved|ACT-2026-ABCDE", cb.Value)
		assert.Equal(t, "@sre-oncall", cb.User)
	})

	t.Run("raw JSON", func(t *testing.T) {
		cb, err := ParseCallback([]byte(blockActionsJSON))
		require.NoError(t, err)
		assert.Equal(t, "approved|ACT-2026-ABCDE", cb.Value)
	})

	t.Run("user falls back to name then id", func(t *testing.T) {
		cb, err := ParseCallback([]byte(`{"user":{"id":"U1","name":"sre"},"actions":[{"action_id":"t","value":"v"}]}`))
		require.NoError(t, err)
		assert.Equal(t, "sre", cb.User)

		cb, err = ParseCallback([]byte(`{"user":{"id":"U1"},"actions":[{"action_id":"t","value":"v"}]}`))
		require.NoError(t, err)
		assert.Equal(t, "U1", cb.User)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := ParseCallback([]byte("foo=bar"))
		assert.Error(t, err)

		_, err = ParseCallback([]byte(`{"user":{"id":"U1"},"actions":[]}`))
		assert.Error(t, err)

		_, err = ParseCallback([]byte(`{not json`))
		assert.Error(t, err)
	})
}

func TestNormalizeDecision(t *testing.T) {
	assert.Equal(t, models.ValueApprove, NormalizeDecision("approved"))
	assert.Equal(t, models.ValueReject, NormalizeDecision("rejected"))
	assert.Equal(t, models.ValueApprove, NormalizeDecision("approve"))
	assert.Equal(t, models.ValueMoreInfo, NormalizeDecision("more_info"))
	assert.Equal(t, models.ApprovalValue("info"), NormalizeDecision("info"))
}

func TestSplitValue(t *testing.T) {
	decision, actionID := SplitValue("approved|ACT-2026-ABCDE")
	assert.Equal(t, "approved", decision)
	require.NotNil(t, actionID)
	assert.Equal(t, "ACT-2026-ABCDE", *actionID)

	decision, actionID = SplitValue("rejected")
	assert.Equal(t, "rejected", decision)
	assert.Nil(t, actionID)

	decision, actionID = SplitValue("approved|")
	assert.Equal(t, "approved", decision)
	assert.Nil(t, actionID)
}

func TestIncidentFromToken(t *testing.T) {
	assert.Equal(t, "INC-2026-0042", IncidentFromToken("vigil_approve_INC-2026-0042"))
	assert.Equal(t, "INC-2026-0042", IncidentFromToken("vigil_reject_INC-2026-0042"))
	assert.Equal(t, "INC-2026-0042", IncidentFromToken("vigil_info_INC-2026-0042"))
	assert.Equal(t, "INC-2026-0042", IncidentFromToken("INC-2026-0042"))
	assert.Equal(t, "other_approve_INC-1", IncidentFromToken("other_approve_INC-1"))
}
