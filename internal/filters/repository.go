package filters

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"entityquery/internal/constants"
	pkgerrors "entityquery/pkg/errors"
	"entityquery/pkg/metrics"
	"entityquery/pkg/query"
)

const uniqueViolation = "23505"

type Repository interface {
	Create(ctx context.Context, filter *SavedFilter) error
	Get(ctx context.Context, tenantID, id string) (*SavedFilter, error)
	List(ctx context.Context, tenantID string) ([]SavedFilter, error)
	Update(ctx context.Context, filter *SavedFilter) error
	Delete(ctx context.Context, tenantID, id string) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, filter *SavedFilter) error {
	if filter.ID == "" {
		filter.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	filter.CreatedAt = now
	filter.UpdatedAt = now

	keyFilters, err := json.Marshal(filter.KeyFilters)
	if err != nil {
		return fmt.Errorf("failed to encode key filters: %w", err)
	}

	start := time.Now()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO saved_filters (id, tenant_id, name, editable, key_filters, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, filter.ID, filter.TenantID, filter.Filter, filter.Editable, keyFilters, filter.CreatedAt, filter.UpdatedAt)
	observeQuery("insert", start, err)
	if err != nil {
		if isUniqueViolation(err) {
			return duplicateName(err, filter.Filter)
		}
		return fmt.Errorf("failed to create filter: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, tenantID, id string) (*SavedFilter, error) {
	start := time.Now()
	row := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, editable, key_filters, created_at, updated_at
		FROM saved_filters
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)

	filter, err := scanFilter(row)
	if errors.Is(err, sql.ErrNoRows) {
		observeQuery("select", start, nil)
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	observeQuery("select", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get filter %s: %w", id, err)
	}
	return filter, nil
}

func (r *PostgresRepository) List(ctx context.Context, tenantID string) ([]SavedFilter, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, editable, key_filters, created_at, updated_at
		FROM saved_filters
		WHERE tenant_id = $1
		ORDER BY name
	`, tenantID)
	observeQuery("select", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list filters: %w", err)
	}
	defer rows.Close()

	filters := []SavedFilter{}
	for rows.Next() {
		filter, err := scanFilter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan filter: %w", err)
		}
		filters = append(filters, *filter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list filters: %w", err)
	}

	return filters, nil
}

func (r *PostgresRepository) Update(ctx context.Context, filter *SavedFilter) error {
	filter.UpdatedAt = time.Now().UTC()

	keyFilters, err := json.Marshal(filter.KeyFilters)
	if err != nil {
		return fmt.Errorf("failed to encode key filters: %w", err)
	}

	start := time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE saved_filters
		SET name = $1, editable = $2, key_filters = $3, updated_at = $4
		WHERE tenant_id = $5 AND id = $6
	`, filter.Filter, filter.Editable, keyFilters, filter.UpdatedAt, filter.TenantID, filter.ID)
	observeQuery("update", start, err)
	if err != nil {
		if isUniqueViolation(err) {
			return duplicateName(err, filter.Filter)
		}
		return fmt.Errorf("failed to update filter: %w", err)
	}

	return requireAffected(res, filter.ID)
}

func (r *PostgresRepository) Delete(ctx context.Context, tenantID, id string) error {
	start := time.Now()
	res, err := r.db.ExecContext(ctx, `DELETE FROM saved_filters WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	observeQuery("delete", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete filter: %w", err)
	}

	return requireAffected(res, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFilter(row scanner) (*SavedFilter, error) {
	var (
		filter     SavedFilter
		keyFilters []byte
	)
	if err := row.Scan(
		&filter.ID, &filter.TenantID, &filter.Filter, &filter.Editable,
		&keyFilters, &filter.CreatedAt, &filter.UpdatedAt,
	); err != nil {
		return nil, err
	}

	filter.KeyFilters = []query.KeyFilterInfo{}
	if len(keyFilters) > 0 {
		if err := json.Unmarshal(keyFilters, &filter.KeyFilters); err != nil {
			return nil, fmt.Errorf("decode key filters of %s: %w", filter.ID, err)
		}
	}
	return &filter, nil
}

func requireAffected(res sql.Result, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func duplicateName(err error, name string) error {
	return pkgerrors.ErrConflict.WithCause(err).WithMessage("filter with name '%s' already exists", name)
}

func observeQuery(operation string, start time.Time, err error) {
	metrics.ObserveDatabaseQuery(constants.ServiceName, "postgres", operation, start, err)
}
