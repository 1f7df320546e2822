package postgres

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
)

type DatasetItemRepository struct {
	BaseRepository
}

func NewDatasetItemRepository(pool *pgxpool.Pool) *DatasetItemRepository {
	return &DatasetItemRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

const datasetItemColumns = `id, dataset_id, input, expected_output, status, source_trace_id, metadata, created_at, updated_at`

func (r *DatasetItemRepository) Create(ctx context.Context, item *models.DatasetItem) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	input, err := marshalJSONValue(item.Input)
	if err != nil {
		return err
	}
	expected, err := marshalJSONValue(item.ExpectedOutput)
	if err != nil {
		return err
	}
	metadata, err := marshalJSONField(&item.Metadata)
	if err != nil {
		return err
	}

	var embedding *pgvector.Vector
	if len(item.Embedding) > 0 {
		v := pgvector.NewVector(item.Embedding)
		embedding = &v
	}

	query := `
		INSERT INTO dataset_items (
			id, dataset_id, input, expected_output, status, source_trace_id,
			metadata, embedding, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err = r.conn(ctx).Exec(ctx, query,
		item.ID,
		item.DatasetID,
		input,
		expected,
		item.Status,
		nullStringPtr(item.SourceTraceID),
		metadata,
		embedding,
		item.CreatedAt,
		item.UpdatedAt,
	)

	return err
}

func (r *DatasetItemRepository) GetByID(ctx context.Context, id string) (*models.DatasetItem, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + datasetItemColumns + `
		FROM dataset_items
		WHERE id = $1`

	item, err := r.scanItem(r.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if checkNoRows(err) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *DatasetItemRepository) ListByDataset(ctx context.Context, datasetID string, limit, offset int) ([]*models.DatasetItem, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + datasetItemColumns + `
		FROM dataset_items
		WHERE dataset_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3`

	rows, err := r.conn(ctx).Query(ctx, query, datasetID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanItems(rows)
}

func (r *DatasetItemRepository) ListActiveByDataset(ctx context.Context, datasetID string) ([]*models.DatasetItem, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + datasetItemColumns + `
		FROM dataset_items
		WHERE dataset_id = $1 AND status = $2
		ORDER BY created_at`

	rows, err := r.conn(ctx).Query(ctx, query, datasetID, models.ItemStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanItems(rows)
}

// Archive removes an item from future runs. Existing run items keep their
// reference, so historical run results stay intact.
func (r *DatasetItemRepository) Archive(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE dataset_items
		SET status = $1, updated_at = NOW()
		WHERE id = $2`

	result, err := r.conn(ctx).Exec(ctx, query, models.ItemStatusArchived, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}

	return nil
}

func (r *DatasetItemRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE dataset_items
		SET embedding = $1, updated_at = NOW()
		WHERE id = $2`

	result, err := r.conn(ctx).Exec(ctx, query, pgvector.NewVector(embedding), id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}

	return nil
}

func (r *DatasetItemRepository) SearchSimilar(ctx context.Context, datasetID string, embedding []float32, limit int) ([]*models.DatasetItem, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + datasetItemColumns + `
		FROM dataset_items
		WHERE dataset_id = $1 AND status = $2 AND embedding IS NOT NULL
		ORDER BY embedding <=> $3
		LIMIT $4`

	rows, err := r.conn(ctx).Query(ctx, query, datasetID, models.ItemStatusActive, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanItems(rows)
}

func (r *DatasetItemRepository) scanItem(row pgx.Row) (*models.DatasetItem, error) {
	var item models.DatasetItem
	var input, expected, metadata []byte
	var sourceTraceID sql.NullString

	err := row.Scan(
		&item.ID,
		&item.DatasetID,
		&input,
		&expected,
		&item.Status,
		&sourceTraceID,
		&metadata,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if item.Input, err = unmarshalJSONValue(input); err != nil {
		return nil, err
	}
	if item.ExpectedOutput, err = unmarshalJSONValue(expected); err != nil {
		return nil, err
	}
	if err := unmarshalJSONField(metadata, &item.Metadata); err != nil {
		return nil, err
	}
	item.SourceTraceID = getStringPtr(sourceTraceID)

	return &item, nil
}

func (r *DatasetItemRepository) scanItems(rows pgx.Rows) ([]*models.DatasetItem, error) {
	items := make([]*models.DatasetItem, 0)

	for rows.Next() {
		item, err := r.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}
