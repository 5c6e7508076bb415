// SPDX-License-Identifier: Apache-2.0

package approval

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/kusari-oss/vigil/internal/core/models"
	"github.com/kusari-oss/vigil/internal/dispatch"
)

// Callback is the decoded user action from an interactive approval message
type Callback struct {
	Token string
	Value string
	User  string
}

type callbackPayload struct {
	User struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Name     string `json:"name"`
	} `json:"user"`
	Actions []struct {
		ActionID string `json:"action_id"`
		Value    string `json:"value"`
	} `json:"actions"`
}

// ParseCallback decodes a callback body. Form bodies carry the JSON in a payload field.
func ParseCallback(body []byte) (Callback, error) {
	raw := strings.TrimSpace(string(body))
	if !strings.HasPrefix(raw, "{") {
		form, err := url.ParseQuery(raw)
		if err != nil {
			return Callback{}, fmt.Errorf("invalid callback form body: %w", err)
		}
		raw = form.Get("payload")
		if raw == "" {
			return Callback{}, fmt.Errorf("callback body has no payload")
		}
	}

	var payload callbackPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Callback{}, fmt.Errorf("invalid callback payload: %w", err)
	}
	if len(payload.Actions) == 0 {
		return Callback{}, fmt.Errorf("callback payload has no actions")
	}

	user := payload.User.Username
	if user == "" {
		user = payload.User.Name
	}
	if user == "" {
		user = payload.User.ID
	}

	action := payload.Actions[0]
	return Callback{Token: action.ActionID, Value: action.Value, User: user}, nil
}

// NormalizeDecision maps raw button values to the stored vocabulary
func NormalizeDecision(raw string) models.ApprovalValue {
	switch raw {
	case "approved":
		return models.ValueApprove
	case "rejected":
		return models.ValueReject
	default:
		return models.ApprovalValue(raw)
	}
}

// IsInformational reports whether a decision only asks for more context
func IsInformational(value models.ApprovalValue) bool {
	return value == models.ValueMoreInfo || value == "info"
}

// SplitValue separates "<decision>|<action_id>"; the action id is optional
func SplitValue(value string) (decision string, actionID *string) {
	decision, rest, found := strings.Cut(value, "|")
	if found && rest != "" {
		return decision, &rest
	}
	return decision, nil
}

var tokenPrefixes = []string{
	dispatch.ApproveTokenPrefix,
	dispatch.RejectTokenPrefix,
	dispatch.InfoTokenPrefix,
}

// IncidentFromToken recovers the incident id from a callback token
func IncidentFromToken(token string) string {
	for _, prefix := range tokenPrefixes {
		if strings.HasPrefix(token, prefix) {
			return strings.TrimPrefix(token, prefix)
		}
	}
	return token
}
