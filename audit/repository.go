// audit/repository.go
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	logger "github.com/albeach/DIVE-V3-sub011/logging"
)

type Repository interface {
	LogAuthorization(ctx context.Context, trail []AuditEntry) error
	QueryTrail(ctx context.Context, from, to time.Time, subjectID, resourceID string) ([]AuditEntry, error)
}

const indexName = "authz-audit"

type ElasticsearchRepository struct {
	esClient *elasticsearch.Client
}

// NewElasticsearchRepository creates a new repository with a given Elasticsearch client URL.
func NewElasticsearchRepository(esURL string) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}
	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ElasticsearchRepository{esClient: esClient}, nil
}

// LogAuthorization indexes every stage of one authorization trail.
func (r *ElasticsearchRepository) LogAuthorization(ctx context.Context, trail []AuditEntry) error {
	for i, entry := range trail {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}

		req := esapi.IndexRequest{
			Index:      indexName,
			DocumentID: fmt.Sprintf("%s-%d", entry.CorrelationID, i),
			Body:       strings.NewReader(string(data)),
			Refresh:    "true",
		}

		res, err := req.Do(ctx, r.esClient)
		if err != nil {
			return err
		}
		res.Body.Close()

		if res.IsError() {
			return fmt.Errorf("error indexing audit entry: %s", res.String())
		}
	}
	return nil
}

// QueryTrail searches audit entries by time range and optional subject and
// resource filters.
func (r *ElasticsearchRepository) QueryTrail(ctx context.Context, from, to time.Time, subjectID, resourceID string) ([]AuditEntry, error) {
	must := []map[string]interface{}{
		{
			"range": map[string]interface{}{
				"timestamp": map[string]interface{}{
					"gte": from.Format(time.RFC3339),
					"lte": to.Format(time.RFC3339),
				},
			},
		},
	}
	if subjectID != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"subject_id": subjectID},
		})
	}
	if resourceID != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"resource_id": resourceID},
		})
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
		"sort": []map[string]interface{}{
			{"timestamp": map[string]interface{}{"order": "asc"}},
		},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := r.esClient.Search(
		r.esClient.Search.WithContext(ctx),
		r.esClient.Search.WithIndex(indexName),
		r.esClient.Search.WithBody(strings.NewReader(string(body))),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error querying audit entries: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source AuditEntry `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	entries := make([]AuditEntry, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		entries = append(entries, hit.Source)
	}
	return entries, nil
}

// LogRepository writes audit trails to the structured log only. Used when no
// Elasticsearch endpoint is configured.
type LogRepository struct{}

func NewLogRepository() *LogRepository {
	return &LogRepository{}
}

func (r *LogRepository) LogAuthorization(ctx context.Context, trail []AuditEntry) error {
	for _, entry := range trail {
		logger.Info("Audit entry",
			zap.String("correlationID", entry.CorrelationID),
			zap.String("stage", entry.Stage),
			zap.String("outcome", entry.Outcome),
			zap.String("subjectID", entry.SubjectID),
			zap.String("resourceID", entry.ResourceID),
			zap.String("details", entry.Details))
	}
	return nil
}

func (r *LogRepository) QueryTrail(ctx context.Context, from, to time.Time, subjectID, resourceID string) ([]AuditEntry, error) {
	return nil, fmt.Errorf("audit queries require an Elasticsearch repository")
}
