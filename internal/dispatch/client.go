// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/kusari-oss/vigil/internal/core/schema"
	"github.com/kusari-oss/vigil/internal/logger"
	"github.com/kusari-oss/vigil/internal/router"
)

// Actor delivers an envelope to a remote workflow actor and returns its response
type Actor interface {
	Deliver(ctx context.Context, env Envelope) (map[string]interface{}, error)
}

// ActorError reports an application-level failure returned by an actor
type ActorError struct {
	Target  string
	Message string
}

func (e *ActorError) Error() string {
	return fmt.Sprintf("actor %s reported failure: %s", e.Target, e.Message)
}

// Client delivers routed actions to the registered workflow actors
type Client struct {
	agentID string

	mu     sync.RWMutex
	actors map[string]Actor
}

// NewClient creates a dispatch client that signs envelopes with agentID
func NewClient(agentID string) *Client {
	return &Client{
		agentID: agentID,
		actors:  make(map[string]Actor),
	}
}

// AgentID returns the identifier used as the envelope sender
func (c *Client) AgentID() string {
	return c.agentID
}

// Register registers the actor serving a target
func (c *Client) Register(target string, actor Actor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actors[target] = actor
}

func (c *Client) actorFor(target string) (Actor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	actor, ok := c.actors[target]
	if !ok {
		return nil, fmt.Errorf("no actor registered for target %s", target)
	}
	return actor, nil
}

// Dispatch builds the envelope for a routed action, delivers it and validates the response
func (c *Client) Dispatch(ctx context.Context, incidentID, actionID string, route router.Route) (map[string]interface{}, error) {
	env, err := NewEnvelope(c.agentID, incidentID, actionID, route)
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, env)
}

// Send delivers a prepared envelope and validates the response against the task contract
func (c *Client) Send(ctx context.Context, env Envelope) (map[string]interface{}, error) {
	actor, err := c.actorFor(env.To)
	if err != nil {
		return nil, err
	}

	logger.Debug("dispatching %s (%s) to %s, correlation %s", env.Payload.ActionID, env.Payload.Task, env.To, env.CorrelationID)

	response, err := actor.Deliver(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("dispatch to %s failed: %w", env.To, err)
	}

	if err := schema.ValidateResponse(env.Payload.Task, response); err != nil {
		return nil, err
	}

	if status, _ := response["status"].(string); status == "failed" {
		message, _ := response["error"].(string)
		if message == "" {
			message = "no error detail provided"
		}
		return response, &ActorError{Target: env.To, Message: message}
	}

	return response, nil
}
