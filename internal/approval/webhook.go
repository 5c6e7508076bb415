// SPDX-License-Identifier: Apache-2.0

package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/kusari-oss/vigil/internal/core/models"
	"github.com/kusari-oss/vigil/internal/logger"
)

// Signature headers. The Slack names are accepted as aliases.
const (
	HeaderTimestamp      = "X-Signature-Timestamp"
	HeaderSignature      = "X-Signature"
	HeaderSlackTimestamp = "X-Slack-Request-Timestamp"
	HeaderSlackSignature = "X-Slack-Signature"
)

const maxCallbackBody = 1 << 20

// ResponseAppender appends approval responses to the shared store
type ResponseAppender interface {
	AppendResponse(ctx context.Context, rec models.ApprovalResponseRecord) error
}

// CallbackResult reports what a callback decided and whether it was durably recorded
type CallbackResult struct {
	Decision   models.ApprovalValue `json:"decision"`
	IncidentID string               `json:"incident_id"`
	ActionID   *string              `json:"action_id"`
	User       string               `json:"user"`
	Indexed    bool                 `json:"indexed"`
}

// Webhook ingests interactive approval callbacks and records them in the store
type Webhook struct {
	store  ResponseAppender
	secret atomic.Value
	now    func() time.Time
}

// NewWebhook creates a webhook handler verifying callbacks with secret
func NewWebhook(store ResponseAppender, secret string) *Webhook {
	w := &Webhook{store: store, now: time.Now}
	w.secret.Store(secret)
	return w
}

// SetSecret replaces the signing secret, e.g. after a config reload
func (w *Webhook) SetSecret(secret string) {
	w.secret.Store(secret)
}

func (w *Webhook) signingSecret() string {
	s, _ := w.secret.Load().(string)
	return s
}

// HandleApprovalCallback records a verified callback. Informational decisions are never stored.
func (w *Webhook) HandleApprovalCallback(ctx context.Context, cb Callback) CallbackResult {
	rawDecision, actionID := SplitValue(cb.Value)
	decision := NormalizeDecision(rawDecision)

	result := CallbackResult{
		Decision:   decision,
		IncidentID: IncidentFromToken(cb.Token),
		ActionID:   actionID,
		User:       cb.User,
	}

	if IsInformational(decision) {
		logger.Info("approval: %s requested more info on %s", cb.User, result.IncidentID)
		return result
	}

	var reason *string
	if decision == models.ValueReject {
		reason = models.StringPtr(fmt.Sprintf("Rejected by %s via interactive approval", cb.User))
	}

	rec := models.ApprovalResponseRecord{
		IncidentID: result.IncidentID,
		ActionID:   actionID,
		Value:      decision,
		User:       cb.User,
		Reason:     reason,
		Timestamp:  w.now().UTC().Format(time.RFC3339Nano),
	}

	if w.store == nil {
		logger.Warn("approval: no response store configured, %s decision for %s not recorded", decision, result.IncidentID)
		return result
	}
	if err := w.store.AppendResponse(ctx, rec); err != nil {
		logger.Warn("approval: failed to record %s decision for %s: %v", decision, result.IncidentID, err)
		return result
	}

	result.Indexed = true
	logger.Info("approval: recorded %s by %s for incident %s", decision, cb.User, result.IncidentID)
	return result
}

// ServeHTTP verifies, parses and records an approval callback
func (w *Webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.Header().Set("Allow", http.MethodPost)
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, maxCallbackBody))
	if err != nil {
		http.Error(rw, "unable to read body", http.StatusBadRequest)
		return
	}

	timestamp := headerOr(r, HeaderTimestamp, HeaderSlackTimestamp)
	signature := headerOr(r, HeaderSignature, HeaderSlackSignature)
	if !VerifySignature(w.signingSecret(), timestamp, string(body), signature, w.now()) {
		logger.Warn("approval: rejected callback with invalid signature from %s", r.RemoteAddr)
		http.Error(rw, "invalid signature", http.StatusUnauthorized)
		return
	}

	cb, err := ParseCallback(body)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}

	result := w.HandleApprovalCallback(r.Context(), cb)

	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(result); err != nil {
		logger.Error("approval: failed to write callback response: %v", err)
	}
}

func headerOr(r *http.Request, primary, fallback string) string {
	if v := r.Header.Get(primary); v != "" {
		return v
	}
	return r.Header.Get(fallback)
}
