// SPDX-License-Identifier: Apache-2.0

package approval

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/kusari-oss/vigil/internal/core/models"
)

// Policy is a CEL expression that can force approval for matching actions
type Policy struct {
	expression string
	program    cel.Program
}

// NewPolicy compiles an escalation expression over the action variable
func NewPolicy(expression string) (*Policy, error) {
	env, err := cel.NewEnv(
		cel.Variable("action", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("error compiling approval policy: %w", issues.Err())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("error building approval policy program: %w", err)
	}

	return &Policy{expression: expression, program: program}, nil
}

// Expression returns the source expression
func (p *Policy) Expression() string {
	return p.expression
}

// Escalates reports whether the policy requires approval for the action
func (p *Policy) Escalates(action models.RemediationAction) (bool, error) {
	targetAsset := ""
	if action.TargetAsset != nil {
		targetAsset = *action.TargetAsset
	}
	params := action.Params
	if params == nil {
		params = map[string]interface{}{}
	}

	result, _, err := p.program.Eval(map[string]interface{}{
		"action": map[string]interface{}{
			"order":              int64(action.Order),
			"action_type":        string(action.ActionType),
			"description":        action.Description,
			"target_system":      action.TargetSystem,
			"target_asset":       targetAsset,
			"params":             params,
			"approval_required":  action.ApprovalRequired,
			"rollback_available": action.RollbackAvailable(),
		},
	})
	if err != nil {
		return false, fmt.Errorf("error evaluating approval policy: %w", err)
	}

	if result.Type() != types.BoolType {
		return false, fmt.Errorf("approval policy did not evaluate to a boolean")
	}
	return result.Value().(bool), nil
}
