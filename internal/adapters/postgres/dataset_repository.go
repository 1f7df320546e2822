package postgres

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
)

type DatasetRepository struct {
	BaseRepository
}

func NewDatasetRepository(pool *pgxpool.Pool) *DatasetRepository {
	return &DatasetRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

const datasetColumns = `id, name, description, agent_reference, metadata, created_at, updated_at`

func (r *DatasetRepository) Create(ctx context.Context, dataset *models.Dataset) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	metadata, err := marshalJSONField(&dataset.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO datasets (
			id, name, description, agent_reference, metadata, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)`

	_, err = r.conn(ctx).Exec(ctx, query,
		dataset.ID,
		dataset.Name,
		nullString(dataset.Description),
		nullString(dataset.AgentReference),
		metadata,
		dataset.CreatedAt,
		dataset.UpdatedAt,
	)

	return err
}

func (r *DatasetRepository) GetByID(ctx context.Context, id string) (*models.Dataset, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + datasetColumns + `
		FROM datasets
		WHERE id = $1`

	return r.scanDataset(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *DatasetRepository) GetByName(ctx context.Context, name string) (*models.Dataset, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + datasetColumns + `
		FROM datasets
		WHERE name = $1`

	return r.scanDataset(r.conn(ctx).QueryRow(ctx, query, name))
}

func (r *DatasetRepository) Update(ctx context.Context, dataset *models.Dataset) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	metadata, err := marshalJSONField(&dataset.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE datasets
		SET name = $1, description = $2, agent_reference = $3, metadata = $4, updated_at = NOW()
		WHERE id = $5`

	result, err := r.conn(ctx).Exec(ctx, query,
		dataset.Name,
		nullString(dataset.Description),
		nullString(dataset.AgentReference),
		metadata,
		dataset.ID,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrDatasetNotFound
	}

	return nil
}

func (r *DatasetRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `DELETE FROM datasets WHERE id = $1`

	result, err := r.conn(ctx).Exec(ctx, query, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrDatasetNotFound
	}

	return nil
}

func (r *DatasetRepository) List(ctx context.Context, limit, offset int) ([]*models.Dataset, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + datasetColumns + `
		FROM datasets
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	datasets := make([]*models.Dataset, 0)
	for rows.Next() {
		dataset, err := r.scanDatasetRow(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, dataset)
	}

	return datasets, rows.Err()
}

func (r *DatasetRepository) scanDataset(row pgx.Row) (*models.Dataset, error) {
	dataset, err := r.scanDatasetRow(row)
	if err != nil {
		if checkNoRows(err) {
			return nil, domain.ErrDatasetNotFound
		}
		return nil, err
	}
	return dataset, nil
}

func (r *DatasetRepository) scanDatasetRow(row pgx.Row) (*models.Dataset, error) {
	var dataset models.Dataset
	var description, agentReference sql.NullString
	var metadata []byte

	err := row.Scan(
		&dataset.ID,
		&dataset.Name,
		&description,
		&agentReference,
		&metadata,
		&dataset.CreatedAt,
		&dataset.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	dataset.Description = getString(description)
	dataset.AgentReference = getString(agentReference)
	if err := unmarshalJSONField(metadata, &dataset.Metadata); err != nil {
		return nil, err
	}

	return &dataset, nil
}
