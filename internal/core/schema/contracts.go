// SPDX-License-Identifier: Apache-2.0

package schema

// Tasks carried in dispatch payloads
const (
	TaskContain         = "contain"
	TaskRemediate       = "remediate"
	TaskNotify          = "notify"
	TaskDocument        = "document"
	TaskRequestApproval = "request_approval"
)

// Contract is a named JSON schema an actor response must satisfy
type Contract struct {
	Name   string
	Schema map[string]interface{}
}

func statusProperty() map[string]interface{} {
	return map[string]interface{}{
		"type": "string",
		"enum": []interface{}{"completed", "failed"},
	}
}

func stringArray() map[string]interface{} {
	return map[string]interface{}{
		"type":  "array",
		"items": map[string]interface{}{"type": "string"},
	}
}

var contracts = map[string]Contract{
	TaskContain: {
		Name: "containment-response",
		Schema: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"status", "action_id"},
			"properties": map[string]interface{}{
				"status":          statusProperty(),
				"action_id":       map[string]interface{}{"type": "string"},
				"affected_assets": stringArray(),
				"rollback_token":  map[string]interface{}{"type": "string"},
				"error":           map[string]interface{}{"type": "string"},
			},
		},
	},
	TaskRemediate: {
		Name: "remediation-response",
		Schema: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"status", "action_id"},
			"properties": map[string]interface{}{
				"status":    statusProperty(),
				"action_id": map[string]interface{}{"type": "string"},
				"changes":   stringArray(),
				"error":     map[string]interface{}{"type": "string"},
			},
		},
	},
	TaskNotify: {
		Name: "notification-response",
		Schema: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"status"},
			"properties": map[string]interface{}{
				"status":       statusProperty(),
				"delivered_to": stringArray(),
				"message_ts":   map[string]interface{}{"type": "string"},
				"error":        map[string]interface{}{"type": "string"},
			},
		},
	},
	TaskDocument: {
		Name: "ticketing-response",
		Schema: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"status"},
			"properties": map[string]interface{}{
				"status":     statusProperty(),
				"ticket_id":  map[string]interface{}{"type": "string"},
				"ticket_url": map[string]interface{}{"type": "string"},
				"error":      map[string]interface{}{"type": "string"},
			},
		},
	},
	TaskRequestApproval: {
		Name: "approval-request-response",
		Schema: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"status"},
			"properties": map[string]interface{}{
				"status":     statusProperty(),
				"message_ts": map[string]interface{}{"type": "string"},
				"error":      map[string]interface{}{"type": "string"},
			},
		},
	},
}

// ContractForTask returns the response contract for a task
func ContractForTask(task string) (Contract, bool) {
	c, ok := contracts[task]
	return c, ok
}
