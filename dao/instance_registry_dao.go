// dao/instance_registry_dao.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	dive_errors "github.com/albeach/DIVE-V3-sub011/errors"
	logger "github.com/albeach/DIVE-V3-sub011/logging"
	"github.com/albeach/DIVE-V3-sub011/model"
)

const labelInstance = "FederationInstance"

// InstanceRegistryDAO persists federation trust entries in Neo4j. Admin
// approval workflows are the only writers; the registry service reads
// through a warm snapshot instead of hitting the graph on every request.
type InstanceRegistryDAO struct {
	Driver neo4j.Driver
}

func NewInstanceRegistryDAO(driver neo4j.Driver) *InstanceRegistryDAO {
	dao := &InstanceRegistryDAO{Driver: driver}
	ctx := context.Background()
	if err := dao.EnsureUniqueConstraint(ctx); err != nil {
		logger.Fatal("Failed to ensure unique constraint for FederationInstance", zap.Error(err))
	}
	return dao
}

func (dao *InstanceRegistryDAO) EnsureUniqueConstraint(ctx context.Context) error {
	logger.Info("Ensuring unique constraint on FederationInstance ID")
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        CREATE CONSTRAINT unique_instance_id IF NOT EXISTS
        FOR (i:` + labelInstance + `) REQUIRE i.id IS UNIQUE
        `
		_, err := transaction.Run(query, nil)
		return nil, err
	})

	if err != nil {
		logger.Error("Failed to ensure unique constraint on FederationInstance ID", zap.Error(err))
		return err
	}

	return nil
}

// UpsertInstance creates or replaces one instance's federation entry.
func (dao *InstanceRegistryDAO) UpsertInstance(ctx context.Context, entry model.InstanceRegistryEntry) (*model.InstanceRegistryEntry, error) {
	start := time.Now()
	logger.Info("Upserting federation instance", zap.String("instanceID", entry.InstanceID))
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	mappingJSON, err := json.Marshal(entry.ClearanceMapping)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal clearance mapping: %w", err)
	}
	endpointsJSON, err := json.Marshal(entry.KASEndpoints)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal KAS endpoints: %w", err)
	}

	now := time.Now()
	_, err = session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MERGE (i:` + labelInstance + ` {id: $id})
        ON CREATE SET i.createdAt = $now
        SET i.country = $country,
            i.clearanceMapping = $clearanceMapping,
            i.trustedKAS = $trustedKAS,
            i.maxClassification = $maxClassification,
            i.allowedCOIs = $allowedCOIs,
            i.kasEndpoints = $kasEndpoints,
            i.updatedAt = $now
        RETURN i.id as id
        `

		params := map[string]interface{}{
			"id":                entry.InstanceID,
			"country":           entry.Country,
			"clearanceMapping":  string(mappingJSON),
			"trustedKAS":        entry.TrustedKAS,
			"maxClassification": entry.MaxClassification.String(),
			"allowedCOIs":       entry.AllowedCOIs,
			"kasEndpoints":      string(endpointsJSON),
			"now":               now.Format(time.RFC3339),
		}

		result, err := transaction.Run(query, params)
		if err != nil {
			return nil, dive_errors.ErrDatabaseOperation
		}
		if result.Next() {
			return result.Record().Values[0], nil
		}
		return nil, dive_errors.ErrInternalServer
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to upsert federation instance",
			zap.Error(err),
			zap.String("instanceID", entry.InstanceID),
			zap.Duration("duration", duration))
		return nil, err
	}

	entry.UpdatedAt = now
	logger.Info("Federation instance upserted successfully",
		zap.String("instanceID", entry.InstanceID),
		zap.Duration("duration", duration))
	return &entry, nil
}

// GetInstance fetches one instance's federation entry by id.
func (dao *InstanceRegistryDAO) GetInstance(ctx context.Context, instanceID string) (*model.InstanceRegistryEntry, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (i:` + labelInstance + ` {id: $id})
        RETURN i
        `
		result, err := transaction.Run(query, map[string]interface{}{"id": instanceID})
		if err != nil {
			return nil, dive_errors.ErrDatabaseOperation
		}
		if result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			return parseInstanceNode(node)
		}
		return nil, dive_errors.ErrUnknownInstance
	})

	if err != nil {
		return nil, err
	}
	return result.(*model.InstanceRegistryEntry), nil
}

// ListInstances returns every registered federation instance.
func (dao *InstanceRegistryDAO) ListInstances(ctx context.Context) ([]model.InstanceRegistryEntry, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	result, err := session.ReadTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (i:` + labelInstance + `)
        RETURN i
        ORDER BY i.id
        `
		result, err := transaction.Run(query, nil)
		if err != nil {
			return nil, dive_errors.ErrDatabaseOperation
		}

		var entries []model.InstanceRegistryEntry
		for result.Next() {
			node := result.Record().Values[0].(neo4j.Node)
			entry, err := parseInstanceNode(node)
			if err != nil {
				return nil, err
			}
			entries = append(entries, *entry)
		}
		return entries, nil
	})

	if err != nil {
		return nil, err
	}
	return result.([]model.InstanceRegistryEntry), nil
}

// DeleteInstance removes an instance from the federation registry.
func (dao *InstanceRegistryDAO) DeleteInstance(ctx context.Context, instanceID string) error {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err := session.WriteTransaction(func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (i:` + labelInstance + ` {id: $id})
        DETACH DELETE i
        `
		_, err := transaction.Run(query, map[string]interface{}{"id": instanceID})
		if err != nil {
			return nil, dive_errors.ErrDatabaseOperation
		}
		return nil, nil
	})

	if err != nil {
		logger.Error("Failed to delete federation instance",
			zap.Error(err),
			zap.String("instanceID", instanceID))
		return err
	}

	logger.Info("Federation instance deleted", zap.String("instanceID", instanceID))
	return nil
}

func parseInstanceNode(node neo4j.Node) (*model.InstanceRegistryEntry, error) {
	props := node.Props

	entry := &model.InstanceRegistryEntry{
		InstanceID:        stringProp(props, "id"),
		Country:           stringProp(props, "country"),
		MaxClassification: model.ParseClearance(stringProp(props, "maxClassification")),
		TrustedKAS:        stringSliceProp(props, "trustedKAS"),
		AllowedCOIs:       stringSliceProp(props, "allowedCOIs"),
	}

	if raw := stringProp(props, "clearanceMapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &entry.ClearanceMapping); err != nil {
			return nil, fmt.Errorf("malformed clearance mapping for instance %s: %w", entry.InstanceID, err)
		}
	}

	if raw := stringProp(props, "kasEndpoints"); raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &entry.KASEndpoints); err != nil {
			return nil, fmt.Errorf("malformed KAS endpoints for instance %s: %w", entry.InstanceID, err)
		}
	}

	if ts := stringProp(props, "createdAt"); ts != "" {
		entry.CreatedAt, _ = time.Parse(time.RFC3339, ts)
	}
	if ts := stringProp(props, "updatedAt"); ts != "" {
		entry.UpdatedAt, _ = time.Parse(time.RFC3339, ts)
	}

	return entry, nil
}

func stringProp(props map[string]interface{}, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func stringSliceProp(props map[string]interface{}, key string) []string {
	raw, ok := props[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
