// SPDX-License-Identifier: Apache-2.0

package approval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kusari-oss/vigil/internal/core/models"
	"github.com/kusari-oss/vigil/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fastPoll = PollOptions{Interval: time.Millisecond, Timeout: time.Minute, MaxErrors: 3}

func response(value models.ApprovalValue, user, ts string) *models.ApprovalResponseRecord {
	return &models.ApprovalResponseRecord{
		IncidentID: "INC-1",
		ActionID:   models.StringPtr("ACT-2026-AAAAA"),
		Value:      value,
		User:       user,
		Timestamp:  ts,
	}
}

func TestPollForApprovalApproved(t *testing.T) {
	for _, value := range []models.ApprovalValue{"approve", "approved"} {
		t.Run(string(value), func(t *testing.T) {
			s := new(testutil.MockResponseStore)
			s.On("LatestResponse", mock.Anything, "INC-1", "ACT-2026-AAAAA").Return(nil, nil).Once()
			s.On("LatestResponse", mock.Anything, "INC-1", "ACT-2026-AAAAA").
				Return(response(value, "@sre-oncall", "2026-03-01T12:00:00Z"), nil).Once()

			decision, err := NewPoller(s).PollForApproval(context.Background(), "INC-1", "ACT-2026-AAAAA", fastPoll)
			require.NoError(t, err)
			assert.Equal(t, models.ApprovalApproved, decision.Status)
			assert.Equal(t, "@sre-oncall", *decision.DecidedBy)
			assert.Equal(t, "2026-03-01T12:00:00Z", *decision.DecidedAt)
			s.AssertExpectations(t)
		})
	}
}

func TestPollForApprovalRejected(t *testing.T) {
	for _, value := range []models.ApprovalValue{"reject", "rejected"} {
		t.Run(string(value), func(t *testing.T) {
			s := new(testutil.MockResponseStore)
			s.On("LatestResponse", mock.Anything, "INC-1", "ACT-2026-AAAAA").
				Return(response(value, "@lead", "2026-03-01T12:01:00Z"), nil).Once()

			decision, err := NewPoller(s).PollForApproval(context.Background(), "INC-1", "ACT-2026-AAAAA", fastPoll)
			require.NoError(t, err)
			assert.Equal(t, models.ApprovalRejected, decision.Status)
			assert.Equal(t, "@lead", *decision.DecidedBy)
			assert.Equal(t, "2026-03-01T12:01:00Z", *decision.DecidedAt)
		})
	}
}

func TestPollForApprovalTimeout(t *testing.T) {
	opts := PollOptions{Interval: time.Millisecond, Timeout: 20 * time.Millisecond, MaxErrors: 3}

	t.Run("no records", func(t *testing.T) {
		s := new(testutil.MockResponseStore)
		s.On("LatestResponse", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

		decision, err := NewPoller(s).PollForApproval(context.Background(), "INC-1", "ACT-2026-AAAAA", opts)
		require.NoError(t, err)
		assert.Equal(t, models.ApprovalTimeout, decision.Status)
		assert.Nil(t, decision.DecidedBy)
		assert.Nil(t, decision.DecidedAt)
	})

	t.Run("only more_info records", func(t *testing.T) {
		s := new(testutil.MockResponseStore)
		s.On("LatestResponse", mock.Anything, mock.Anything, mock.Anything).
			Return(response(models.ValueMoreInfo, "@analyst", "2026-03-01T12:00:00Z"), nil)

		decision, err := NewPoller(s).PollForApproval(context.Background(), "INC-1", "ACT-2026-AAAAA", opts)
		require.NoError(t, err)
		assert.Equal(t, models.ApprovalTimeout, decision.Status)
		assert.Nil(t, decision.DecidedBy)
		assert.Nil(t, decision.DecidedAt)
		assert.Greater(t, len(s.Calls), 1, "more_info should keep polling")
	})

	t.Run("zero timeout polls once", func(t *testing.T) {
		s := new(testutil.MockResponseStore)
		s.On("LatestResponse", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

		decision, err := NewPoller(s).PollForApproval(context.Background(), "INC-1", "ACT-2026-AAAAA", PollOptions{MaxErrors: 1})
		require.NoError(t, err)
		assert.Equal(t, models.ApprovalTimeout, decision.Status)
		s.AssertNumberOfCalls(t, "LatestResponse", 1)
	})
}

func TestPollForApprovalIntervalLongerThanTimeout(t *testing.T) {
	s := new(testutil.MockResponseStore)
	s.On("LatestResponse", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	start := time.Now()
	decision, err := NewPoller(s).PollForApproval(context.Background(), "INC-1", "ACT-2026-AAAAA",
		PollOptions{Interval: time.Hour, Timeout: 30 * time.Millisecond, MaxErrors: 3})
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalTimeout, decision.Status)
	assert.Less(t, time.Since(start), 5*time.Second, "the final sleep is cut to the deadline")
	s.AssertNumberOfCalls(t, "LatestResponse", 2)
}

func TestPollForApprovalErrorBudget(t *testing.T) {
	s := new(testutil.MockResponseStore)
	s.On("LatestResponse", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	_, err := NewPoller(s).PollForApproval(context.Background(), "INC-1", "ACT-2026-AAAAA", fastPoll)
	require.Error(t, err)

	var pollErr *PollError
	require.True(t, errors.As(err, &pollErr))
	assert.Equal(t, 3, pollErr.Count)
	assert.Contains(t, err.Error(), "3 consecutive errors")
	assert.Contains(t, err.Error(), "connection reset")
	s.AssertNumberOfCalls(t, "LatestResponse", 3)
}

func TestPollForApprovalSuccessResetsErrors(t *testing.T) {
	queryErr := errors.New("timeout talking to store")
	s := new(testutil.MockResponseStore)
	s.On("LatestResponse", mock.Anything, mock.Anything, mock.Anything).Return(nil, queryErr).Twice()
	s.On("LatestResponse", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil).Once()
	s.On("LatestResponse", mock.Anything, mock.Anything, mock.Anything).Return(nil, queryErr).Twice()
	s.On("LatestResponse", mock.Anything, mock.Anything, mock.Anything).
		Return(response(models.ValueApprove, "@sre-oncall", "2026-03-01T12:00:00Z"), nil).Once()

	decision, err := NewPoller(s).PollForApproval(context.Background(), "INC-1", "ACT-2026-AAAAA", fastPoll)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, decision.Status)
	s.AssertNumberOfCalls(t, "LatestResponse", 6)
}

func TestPollForApprovalContextCancelled(t *testing.T) {
	s := new(testutil.MockResponseStore)
	s.On("LatestResponse", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPoller(s).PollForApproval(ctx, "INC-1", "ACT-2026-AAAAA", PollOptions{Interval: time.Hour, Timeout: time.Hour, MaxErrors: 3})
	assert.ErrorIs(t, err, context.Canceled)
}
