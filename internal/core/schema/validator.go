// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ContractError reports a response that does not satisfy its named contract
type ContractError struct {
	Contract   string
	Violations []string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("response violates contract %s: %s", e.Contract, strings.Join(e.Violations, "; "))
}

// Validate validates a document against a JSON schema and returns the violations found
func Validate(schema map[string]interface{}, document interface{}) ([]string, error) {
	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: failed to serialize schema: %w", err)
	}

	documentBytes, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: failed to serialize document: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(documentBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return violations, nil
}

// ValidateResponse checks an actor response against the contract for a task
func ValidateResponse(task string, response map[string]interface{}) error {
	contract, ok := ContractForTask(task)
	if !ok {
		return &ContractError{
			Contract:   "unknown",
			Violations: []string{fmt.Sprintf("no contract registered for task %q", task)},
		}
	}

	// A nil response would serialize to null and fail with a confusing type error
	if response == nil {
		return &ContractError{Contract: contract.Name, Violations: []string{"(root): response is empty"}}
	}

	violations, err := Validate(contract.Schema, response)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return &ContractError{Contract: contract.Name, Violations: violations}
	}
	return nil
}
