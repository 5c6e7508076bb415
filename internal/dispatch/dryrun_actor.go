// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kusari-oss/vigil/internal/core/schema"
)

// DryRunActor prints what would be dispatched and answers with a contract-valid response
type DryRunActor struct {
	out io.Writer
}

// NewDryRunActor creates a dry-run actor writing to out
func NewDryRunActor(out io.Writer) *DryRunActor {
	return &DryRunActor{out: out}
}

// Deliver simulates delivery without side effects
func (d *DryRunActor) Deliver(_ context.Context, env Envelope) (map[string]interface{}, error) {
	if d.out != nil {
		payloadJSON, _ := json.MarshalIndent(env.Payload, "  ", "  ")
		fmt.Fprintf(d.out, "  Would dispatch %s to %s with payload:\n  %s\n", env.Payload.ActionID, env.To, string(payloadJSON))
	}

	response := map[string]interface{}{
		"status":    "completed",
		"action_id": env.Payload.ActionID,
	}
	switch env.Payload.Task {
	case schema.TaskNotify:
		response["delivered_to"] = []interface{}{}
	case schema.TaskDocument:
		response["ticket_id"] = "DRY-RUN"
	}
	return response, nil
}
