// SPDX-License-Identifier: Apache-2.0

package format

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kusari-oss/vigil/internal/core/models"
	"gopkg.in/yaml.v3"
)

// ParseFile reads and parses a file, trying YAML first, then JSON
func ParseFile(filePath string, v interface{}) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	return ParseData(data, v)
}

// ParseData parses data, trying YAML first, then JSON
func ParseData(data []byte, v interface{}) error {
	err := yaml.Unmarshal(data, v)
	if err == nil {
		return nil
	}

	jsonErr := json.Unmarshal(data, v)
	if jsonErr == nil {
		return nil
	}

	return fmt.Errorf("failed to parse as YAML (%v) or JSON (%v)", err, jsonErr)
}

// LoadIncidentPlan reads a plan document. incidentOverride replaces the
// incident id from the file when set; one of the two must be present.
func LoadIncidentPlan(filePath, incidentOverride string) (models.IncidentPlan, error) {
	var plan models.IncidentPlan
	if err := ParseFile(filePath, &plan); err != nil {
		return models.IncidentPlan{}, fmt.Errorf("error loading plan %s: %w", filePath, err)
	}

	if incidentOverride != "" {
		plan.IncidentID = incidentOverride
	}
	if plan.IncidentID == "" {
		return models.IncidentPlan{}, fmt.Errorf("plan %s has no incident_id", filePath)
	}
	return plan, nil
}

// WriteFile writes v as JSON for .json paths and as YAML otherwise
func WriteFile(filePath string, v interface{}) error {
	data, err := marshal(v, !IsJSONFile(filePath))
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}

// FormatData formats data as YAML or JSON string
func FormatData(v interface{}, useYAML bool) (string, error) {
	data, err := marshal(v, useYAML)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func marshal(v interface{}, useYAML bool) ([]byte, error) {
	var data []byte
	var err error
	if useYAML {
		data, err = yaml.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("error formatting data: %w", err)
	}
	return data, nil
}

// IsJSONFile returns true if the file extension suggests it's a JSON file
func IsJSONFile(filePath string) bool {
	return strings.EqualFold(filepath.Ext(filePath), ".json")
}
