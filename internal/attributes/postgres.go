package attributes

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"entityquery/internal/constants"
	"entityquery/pkg/metrics"
	"entityquery/pkg/query"
)

const (
	selectAttributesSQL = `SELECT attribute_key, json_v FROM attribute_kv
WHERE entity_type = $1 AND entity_id = $2 AND attribute_key = ANY($3)`

	upsertAttributeSQL = `INSERT INTO attribute_kv (entity_type, entity_id, attribute_key, json_v, last_update_ts)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (entity_type, entity_id, attribute_key)
DO UPDATE SET json_v = EXCLUDED.json_v, last_update_ts = EXCLUDED.last_update_ts`
)

// PostgresStore reads attributes from the attribute_kv table. Values are
// stored as JSONB.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetAttributes(ctx context.Context, owner query.EntityID, keys []string) (map[string]any, error) {
	start := time.Now()
	result, err := s.getAttributes(ctx, owner, keys)
	observeQuery("get_attributes", start, err)
	return result, err
}

func (s *PostgresStore) getAttributes(ctx context.Context, owner query.EntityID, keys []string) (map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, selectAttributesSQL, owner.EntityType, owner.ID, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("query attributes of %s: %w", owner, err)
	}
	defer rows.Close()

	result := make(map[string]any, len(keys))
	for rows.Next() {
		var (
			key string
			raw []byte
		)
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("scan attribute of %s: %w", owner, err)
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("decode attribute %s of %s: %w", key, owner, err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attributes of %s: %w", owner, err)
	}
	return result, nil
}

func (s *PostgresStore) PutAttribute(ctx context.Context, owner query.EntityID, key string, value any) error {
	start := time.Now()
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode attribute %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, upsertAttributeSQL, owner.EntityType, owner.ID, key, raw, time.Now().UnixMilli())
	observeQuery("put_attribute", start, err)
	if err != nil {
		return fmt.Errorf("upsert attribute %s of %s: %w", key, owner, err)
	}
	return nil
}

func observeQuery(operation string, start time.Time, err error) {
	metrics.ObserveDatabaseQuery(constants.ServiceName, "postgres", operation, start, err)
}
