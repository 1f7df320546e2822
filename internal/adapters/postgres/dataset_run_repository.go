package postgres

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
)

type DatasetRunRepository struct {
	BaseRepository
}

func NewDatasetRunRepository(pool *pgxpool.Pool) *DatasetRunRepository {
	return &DatasetRunRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

const datasetRunColumns = `id, dataset_id, name, status, total_items, completed_items, failed_items, total_cost, total_tokens, metadata, created_at, updated_at, completed_at`

func (r *DatasetRunRepository) Create(ctx context.Context, run *models.DatasetRun) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	metadata, err := marshalJSONField(&run.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO dataset_runs (
			id, dataset_id, name, status, total_items, completed_items, failed_items,
			total_cost, total_tokens, metadata, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	_, err = r.conn(ctx).Exec(ctx, query,
		run.ID,
		run.DatasetID,
		run.Name,
		run.Status,
		run.TotalItems,
		run.CompletedItems,
		run.FailedItems,
		run.TotalCost,
		run.TotalTokens,
		metadata,
		run.CreatedAt,
		run.UpdatedAt,
	)

	return err
}

func (r *DatasetRunRepository) GetByID(ctx context.Context, id string) (*models.DatasetRun, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + datasetRunColumns + `
		FROM dataset_runs
		WHERE id = $1`

	return r.scanRun(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *DatasetRunRepository) GetByName(ctx context.Context, datasetID, name string) (*models.DatasetRun, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + datasetRunColumns + `
		FROM dataset_runs
		WHERE dataset_id = $1 AND name = $2`

	return r.scanRun(r.conn(ctx).QueryRow(ctx, query, datasetID, name))
}

// UpdateStatus applies a lifecycle transition with the source status in the
// WHERE clause. Terminal transitions stamp completed_at in the same statement.
func (r *DatasetRunRepository) UpdateStatus(ctx context.Context, id string, from, to models.RunStatus) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE dataset_runs
		SET status = $1,
			completed_at = CASE WHEN $1 IN ('completed', 'failed') THEN NOW() ELSE completed_at END,
			updated_at = NOW()
		WHERE id = $2 AND status = $3`

	result, err := r.conn(ctx).Exec(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}

	return result.RowsAffected() > 0, nil
}

func (r *DatasetRunRepository) UpdateTotalItems(ctx context.Context, id string, totalItems int) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE dataset_runs
		SET total_items = $1, updated_at = NOW()
		WHERE id = $2`

	result, err := r.conn(ctx).Exec(ctx, query, totalItems, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrRunNotFound
	}

	return nil
}

// UpdateMetrics recomputes the run's counters and aggregates from its run
// items and their traces in a single statement, then returns the fresh row.
// Derived, never incremented: re-running after a crash converges on the
// same numbers.
func (r *DatasetRunRepository) UpdateMetrics(ctx context.Context, id string) (*models.DatasetRun, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE dataset_runs
		SET completed_items = agg.completed,
			failed_items = agg.failed,
			total_cost = agg.cost,
			total_tokens = agg.tokens,
			updated_at = NOW()
		FROM (
			SELECT
				COUNT(*) FILTER (WHERE ri.error IS NULL AND ri.trace_id IS NOT NULL) AS completed,
				COUNT(*) FILTER (WHERE ri.error IS NOT NULL) AS failed,
				COALESCE(SUM(t.cost), 0) AS cost,
				COALESCE(SUM(t.tokens), 0) AS tokens
			FROM dataset_run_items ri
			LEFT JOIN traces t ON t.id = ri.trace_id
			WHERE ri.run_id = $1
		) agg
		WHERE dataset_runs.id = $1
		RETURNING ` + datasetRunColumns

	return r.scanRun(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *DatasetRunRepository) ListByDataset(ctx context.Context, datasetID string, limit, offset int) ([]*models.DatasetRun, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + datasetRunColumns + `
		FROM dataset_runs
		WHERE dataset_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.conn(ctx).Query(ctx, query, datasetID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*models.DatasetRun, 0)
	for rows.Next() {
		run, err := r.scanRunRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (r *DatasetRunRepository) scanRun(row pgx.Row) (*models.DatasetRun, error) {
	run, err := r.scanRunRow(row)
	if err != nil {
		if checkNoRows(err) {
			return nil, domain.ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

func (r *DatasetRunRepository) scanRunRow(row pgx.Row) (*models.DatasetRun, error) {
	var run models.DatasetRun
	var metadata []byte
	var completedAt sql.NullTime

	err := row.Scan(
		&run.ID,
		&run.DatasetID,
		&run.Name,
		&run.Status,
		&run.TotalItems,
		&run.CompletedItems,
		&run.FailedItems,
		&run.TotalCost,
		&run.TotalTokens,
		&metadata,
		&run.CreatedAt,
		&run.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSONField(metadata, &run.Metadata); err != nil {
		return nil, err
	}
	run.CompletedAt = getTimePtr(completedAt)

	return &run, nil
}
