// SPDX-License-Identifier: Apache-2.0

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/kusari-oss/vigil/internal/core/models"
)

// Default index names
const (
	DefaultActionsIndex   = "vigil-actions"
	DefaultApprovalsIndex = "vigil-approval-responses"
)

// Options configures the Elasticsearch store
type Options struct {
	Addresses      []string
	APIKey         string
	Username       string
	Password       string
	ActionsIndex   string
	ApprovalsIndex string
}

// Elasticsearch is an append-only store for audit records and approval responses
type Elasticsearch struct {
	client         *elasticsearch.Client
	actionsIndex   string
	approvalsIndex string
}

// NewElasticsearch creates a store backed by the given cluster
func NewElasticsearch(opts Options) (*Elasticsearch, error) {
	if len(opts.Addresses) == 0 {
		return nil, fmt.Errorf("elasticsearch: at least one address is required")
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: opts.Addresses,
		APIKey:    opts.APIKey,
		Username:  opts.Username,
		Password:  opts.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: error creating client: %w", err)
	}

	s := &Elasticsearch{
		client:         client,
		actionsIndex:   opts.ActionsIndex,
		approvalsIndex: opts.ApprovalsIndex,
	}
	if s.actionsIndex == "" {
		s.actionsIndex = DefaultActionsIndex
	}
	if s.approvalsIndex == "" {
		s.approvalsIndex = DefaultApprovalsIndex
	}
	return s, nil
}

// Explicit mappings keep the identifier fields exact-match so term filters hit
var (
	actionsMapping = map[string]interface{}{
		"timestamp":          map[string]interface{}{"type": "date"},
		"agent_name":         map[string]interface{}{"type": "keyword"},
		"incident_id":        map[string]interface{}{"type": "keyword"},
		"action_id":          map[string]interface{}{"type": "keyword"},
		"action_type":        map[string]interface{}{"type": "keyword"},
		"target_system":      map[string]interface{}{"type": "keyword"},
		"target_asset":       map[string]interface{}{"type": "keyword"},
		"execution_status":   map[string]interface{}{"type": "keyword"},
		"duration_ms":        map[string]interface{}{"type": "long"},
		"rollback_available": map[string]interface{}{"type": "boolean"},
		"approval_required":  map[string]interface{}{"type": "boolean"},
		"approved_by":        map[string]interface{}{"type": "keyword"},
		"approved_at":        map[string]interface{}{"type": "date"},
		"error_message":      map[string]interface{}{"type": "text"},
	}

	approvalsMapping = map[string]interface{}{
		"incident_id": map[string]interface{}{"type": "keyword"},
		"action_id":   map[string]interface{}{"type": "keyword"},
		"value":       map[string]interface{}{"type": "keyword"},
		"user":        map[string]interface{}{"type": "keyword"},
		"reason":      map[string]interface{}{"type": "text"},
		"timestamp":   map[string]interface{}{"type": "date"},
	}
)

// EnsureIndices creates both indices with explicit mappings. Indices that
// already exist are left alone.
func (s *Elasticsearch) EnsureIndices(ctx context.Context) error {
	if err := s.createIndex(ctx, s.actionsIndex, actionsMapping); err != nil {
		return err
	}
	return s.createIndex(ctx, s.approvalsIndex, approvalsMapping)
}

func (s *Elasticsearch) createIndex(ctx context.Context, index string, properties map[string]interface{}) error {
	body, err := json.Marshal(map[string]interface{}{
		"mappings": map[string]interface{}{"properties": properties},
	})
	if err != nil {
		return fmt.Errorf("elasticsearch: error encoding mapping for %s: %w", index, err)
	}

	res, err := s.client.Indices.Create(
		index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: error creating index %s: %w", index, err)
	}
	defer res.Body.Close()

	if !res.IsError() {
		return nil
	}
	detail := res.String()
	if res.StatusCode == http.StatusBadRequest && strings.Contains(detail, "resource_already_exists_exception") {
		return nil
	}
	return fmt.Errorf("elasticsearch: creating index %s failed: %s", index, detail)
}

// WriteAudit appends one audit record to the actions index
func (s *Elasticsearch) WriteAudit(ctx context.Context, rec models.AuditRecord) error {
	return s.index(ctx, s.actionsIndex, rec)
}

// AppendResponse appends one approval response to the approvals index
func (s *Elasticsearch) AppendResponse(ctx context.Context, rec models.ApprovalResponseRecord) error {
	return s.index(ctx, s.approvalsIndex, rec)
}

// index writes a document without waiting for a refresh
func (s *Elasticsearch) index(ctx context.Context, index string, doc interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch: error encoding document for %s: %w", index, err)
	}

	res, err := s.client.Index(
		index,
		bytes.NewReader(body),
		s.client.Index.WithContext(ctx),
		s.client.Index.WithRefresh("false"),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: error indexing into %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch: indexing into %s failed: %s", index, res.String())
	}
	return nil
}

// LatestResponseQuery builds the query for the most recent response to an action
func LatestResponseQuery(incidentID, actionID string) map[string]interface{} {
	filters := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"incident_id": incidentID}},
	}
	if actionID != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"action_id": actionID}})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
		"sort": []interface{}{
			map[string]interface{}{"timestamp": map[string]interface{}{"order": "desc"}},
		},
		"size": 1,
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.ApprovalResponseRecord `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// LatestResponse returns the newest approval response for the pair, or nil when none exists
func (s *Elasticsearch) LatestResponse(ctx context.Context, incidentID, actionID string) (*models.ApprovalResponseRecord, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(LatestResponseQuery(incidentID, actionID)); err != nil {
		return nil, fmt.Errorf("elasticsearch: error encoding query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.approvalsIndex),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: error searching %s: %w", s.approvalsIndex, err)
	}
	defer res.Body.Close()

	// No response has been written yet
	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch: search on %s failed: %s", s.approvalsIndex, res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("elasticsearch: error decoding search response: %w", err)
	}
	if len(parsed.Hits.Hits) == 0 {
		return nil, nil
	}

	rec := parsed.Hits.Hits[0].Source
	return &rec, nil
}
