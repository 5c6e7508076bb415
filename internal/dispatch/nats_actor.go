// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is prepended to the target to form the actor subject
const DefaultSubjectPrefix = "vigil.actors"

// Requester is the request/reply subset of *nats.Conn
type Requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

// NATSActor delivers envelopes over NATS request/reply
type NATSActor struct {
	conn    Requester
	subject string
	timeout time.Duration
}

// NewNATSActor creates an actor publishing on subject
func NewNATSActor(conn Requester, subject string, timeout time.Duration) *NATSActor {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &NATSActor{conn: conn, subject: subject, timeout: timeout}
}

// SubjectFor returns the conventional subject for a target
func SubjectFor(prefix, target string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "." + target
}

// Deliver sends the envelope and waits for the actor's reply
func (n *NATSActor) Deliver(ctx context.Context, env Envelope) (map[string]interface{}, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("nats: failed to encode envelope: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	msg, err := n.conn.RequestWithContext(ctx, n.subject, data)
	if err != nil {
		return nil, fmt.Errorf("nats: request on %s failed: %w", n.subject, err)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(msg.Data, &response); err != nil {
		return nil, fmt.Errorf("nats: invalid response body: %w", err)
	}
	return response, nil
}
