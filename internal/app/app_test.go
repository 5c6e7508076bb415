// SPDX-License-Identifier: Apache-2.0

package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kusari-oss/vigil/internal/app"
	"github.com/kusari-oss/vigil/internal/core/config"
	"github.com/kusari-oss/vigil/internal/core/models"
	"github.com/kusari-oss/vigil/internal/dispatch"
	"github.com/kusari-oss/vigil/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plan() models.RemediationPlan {
	return models.RemediationPlan{Actions: []models.RemediationAction{
		{Order: 1, ActionType: models.ActionContainment, Description: "block ip", TargetSystem: "firewall", ApprovalRequired: true},
		{Order: 2, ActionType: models.ActionCommunication, Description: "notify oncall", TargetSystem: "slack"},
	}}
}

func TestNewDryRun(t *testing.T) {
	var out bytes.Buffer
	cfg := config.NewDefaultConfig()
	cfg.Elasticsearch.Addresses = []string{"http://unused:9200"}

	a, err := app.New(cfg, app.Options{DryRun: true, Out: &out})
	require.NoError(t, err)
	defer a.Close()

	_, isMemory := a.Store.(*store.Memory)
	assert.True(t, isMemory, "dry runs never write to the real store")

	result := a.Executor.ExecutePlan(context.Background(), "INC-DRY", plan())
	assert.Equal(t, models.StatusCompleted, result.Status)
	assert.Contains(t, out.String(), "Would wait for approval")
	assert.Contains(t, out.String(), "Would dispatch")
	assert.Contains(t, out.String(), "wf-notify")
}

func TestNewDryRunAppliesPolicy(t *testing.T) {
	var out bytes.Buffer
	cfg := config.NewDefaultConfig()
	cfg.Approval.Policy = "action.action_type == 'communication'"

	a, err := app.New(cfg, app.Options{DryRun: true, Out: &out})
	require.NoError(t, err)

	a.Executor.ExecutePlan(context.Background(), "INC-DRY", models.RemediationPlan{Actions: []models.RemediationAction{
		{Order: 1, ActionType: models.ActionCommunication, Description: "notify oncall"},
	}})
	assert.Contains(t, out.String(), "Would wait for approval")
}

func TestNewHTTPActors(t *testing.T) {
	envelopes := make(chan dispatch.Envelope, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env dispatch.Envelope
		_ = json.NewDecoder(r.Body).Decode(&env)
		envelopes <- env
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "completed", "delivered_to": []string{"#incidents"}})
	}))
	defer server.Close()

	cfg := config.NewDefaultConfig()
	cfg.Actors["wf-notify"] = config.ActorConfig{Transport: config.TransportHTTP, URL: server.URL}

	a, err := app.New(cfg, app.Options{})
	require.NoError(t, err)
	defer a.Close()

	result := a.Executor.ExecutePlan(context.Background(), "INC-HTTP", models.RemediationPlan{Actions: []models.RemediationAction{
		{Order: 1, ActionType: models.ActionCommunication, Description: "notify oncall"},
		{Order: 2, ActionType: models.ActionDocumentation, Description: "file ticket"},
	}})

	assert.Equal(t, models.StatusCompleted, result.ActionResults[0].Status)
	received := <-envelopes
	assert.Equal(t, "wf-notify", received.To)
	assert.Equal(t, "INC-HTTP", received.CorrelationID)
	assert.Equal(t, "vigil-executor", received.From)

	// No actor is configured for wf-ticketing
	assert.Equal(t, models.StatusFailed, result.ActionResults[1].Status)
	assert.Equal(t, models.StatusFailed, result.Status)

	mem, ok := a.Store.(*store.Memory)
	require.True(t, ok)
	assert.Len(t, mem.Audits(), 2)
}

func TestNewInvalidPolicy(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Approval.Policy = "action.order >"

	_, err := app.New(cfg, app.Options{DryRun: true})
	assert.Error(t, err)
}

func TestWebhookSharesStore(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.SigningSecret = "s3cret"

	a, err := app.New(cfg, app.Options{})
	require.NoError(t, err)

	hook := a.Webhook()
	require.NotNil(t, hook)

	actionID := "ACT-2026-ABCDE"
	require.NoError(t, a.Store.AppendResponse(context.Background(), models.ApprovalResponseRecord{
		IncidentID: "INC-1",
		ActionID:   &actionID,
		Value:      models.ValueApprove,
		User:       "@sre-oncall",
		Timestamp:  "2026-03-01T12:00:00Z",
	}))
	rec, err := a.Store.LatestResponse(context.Background(), "INC-1", actionID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "@sre-oncall", rec.User)
}

func TestNewRequireSharedStore(t *testing.T) {
	cfg := config.NewDefaultConfig()

	_, err := app.New(cfg, app.Options{RequireSharedStore: true})
	require.ErrorIs(t, err, app.ErrNoSharedStore)

	a, err := app.New(cfg, app.Options{RequireSharedStore: true, DryRun: true})
	require.NoError(t, err)
	a.Close()
}

func TestCheckApprovals(t *testing.T) {
	cfg := config.NewDefaultConfig()
	a, err := app.New(cfg, app.Options{})
	require.NoError(t, err)

	err = a.CheckApprovals([]models.IncidentPlan{{IncidentID: "INC-1", Plan: plan()}})
	require.ErrorIs(t, err, app.ErrNoSharedStore)
	assert.Contains(t, err.Error(), "incident INC-1, order 1 requires approval")

	noApproval := models.RemediationPlan{Actions: []models.RemediationAction{
		{Order: 1, ActionType: models.ActionCommunication, Description: "notify oncall"},
	}}
	assert.NoError(t, a.CheckApprovals([]models.IncidentPlan{{IncidentID: "INC-2", Plan: noApproval}}))

	dry, err := app.New(cfg, app.Options{DryRun: true, Out: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.NoError(t, dry.CheckApprovals([]models.IncidentPlan{{IncidentID: "INC-1", Plan: plan()}}))
}

func TestCheckApprovalsAppliesPolicy(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Approval.Policy = "action.action_type == 'communication'"
	a, err := app.New(cfg, app.Options{})
	require.NoError(t, err)

	err = a.CheckApprovals([]models.IncidentPlan{{IncidentID: "INC-2", Plan: models.RemediationPlan{Actions: []models.RemediationAction{
		{Order: 3, ActionType: models.ActionCommunication, Description: "notify oncall"},
	}}}})
	require.ErrorIs(t, err, app.ErrNoSharedStore)
}

// newCluster answers like an Elasticsearch node and records request lines
func newCluster(t *testing.T, status int, body string) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), requests...)
	}
}

func TestNewEnsuresIndices(t *testing.T) {
	server, requests := newCluster(t, http.StatusOK, `{"acknowledged":true}`)
	cfg := config.NewDefaultConfig()
	cfg.Elasticsearch.Addresses = []string{server.URL}

	a, err := app.New(cfg, app.Options{RequireSharedStore: true})
	require.NoError(t, err)
	defer a.Close()

	_, isES := a.Store.(*store.Elasticsearch)
	assert.True(t, isES)
	assert.Equal(t, []string{"PUT /vigil-actions", "PUT /vigil-approval-responses"}, requests())
	assert.NoError(t, a.CheckApprovals([]models.IncidentPlan{{IncidentID: "INC-1", Plan: plan()}}))
}

func TestNewEnsureIndicesFailure(t *testing.T) {
	server, _ := newCluster(t, http.StatusForbidden, `{"error":{"type":"security_exception"},"status":403}`)
	cfg := config.NewDefaultConfig()
	cfg.Elasticsearch.Addresses = []string{server.URL}

	_, err := app.New(cfg, app.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating index vigil-actions failed")
}
