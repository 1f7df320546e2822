package postgres

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
	"github.com/observahq/observa/internal/ports"
)

type DatasetRunItemRepository struct {
	BaseRepository
	idGenerator ports.IDGenerator
}

func NewDatasetRunItemRepository(pool *pgxpool.Pool, idGenerator ports.IDGenerator) *DatasetRunItemRepository {
	return &DatasetRunItemRepository{
		BaseRepository: NewBaseRepository(pool),
		idGenerator:    idGenerator,
	}
}

// CreateMissing inserts one run item per active dataset item that has no run
// item yet. Existing (run, item) pairs are skipped, so re-initializing after
// a crash only fills the gaps. Rows are inserted one at a time because each
// needs a generated ID; the caller wraps this in a transaction.
func (r *DatasetRunItemRepository) CreateMissing(ctx context.Context, runID, datasetID string) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	missingQuery := `
		SELECT di.id
		FROM dataset_items di
		WHERE di.dataset_id = $1 AND di.status = $2
		  AND NOT EXISTS (
			SELECT 1 FROM dataset_run_items ri
			WHERE ri.run_id = $3 AND ri.item_id = di.id
		  )
		ORDER BY di.created_at`

	rows, err := r.conn(ctx).Query(ctx, missingQuery, datasetID, models.ItemStatusActive, runID)
	if err != nil {
		return 0, err
	}

	itemIDs := make([]string, 0)
	for rows.Next() {
		var itemID string
		if err := rows.Scan(&itemID); err != nil {
			rows.Close()
			return 0, err
		}
		itemIDs = append(itemIDs, itemID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	insertQuery := `
		INSERT INTO dataset_run_items (id, run_id, item_id, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (run_id, item_id) DO NOTHING`

	created := 0
	for _, itemID := range itemIDs {
		result, err := r.conn(ctx).Exec(ctx, insertQuery, r.idGenerator.GenerateDatasetRunItemID(), runID, itemID)
		if err != nil {
			return created, err
		}
		created += int(result.RowsAffected())
	}

	return created, nil
}

func (r *DatasetRunItemRepository) GetByID(ctx context.Context, id string) (*models.DatasetRunItem, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ri.id, ri.run_id, ri.item_id, ri.trace_id, ri.error, ri.created_at, ri.updated_at,
			   t.id, t.name, t.session_id, t.input, t.output, t.cost, t.tokens, t.duration_ms, t.created_at
		FROM dataset_run_items ri
		LEFT JOIN traces t ON t.id = ri.trace_id
		WHERE ri.id = $1`

	item, err := r.scanRunItem(r.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if checkNoRows(err) {
			return nil, domain.ErrRunItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *DatasetRunItemRepository) ListByRun(ctx context.Context, runID string) ([]*models.DatasetRunItem, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ri.id, ri.run_id, ri.item_id, ri.trace_id, ri.error, ri.created_at, ri.updated_at,
			   t.id, t.name, t.session_id, t.input, t.output, t.cost, t.tokens, t.duration_ms, t.created_at
		FROM dataset_run_items ri
		LEFT JOIN traces t ON t.id = ri.trace_id
		WHERE ri.run_id = $1
		ORDER BY ri.created_at`

	rows, err := r.conn(ctx).Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*models.DatasetRunItem, 0)
	for rows.Next() {
		item, err := r.scanRunItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// ListForEvaluation returns the succeeded run items joined with the data the
// evaluators consume: item input, expected output and the traced output.
func (r *DatasetRunItemRepository) ListForEvaluation(ctx context.Context, runID string) ([]*ports.RunItemEvaluation, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ri.id, ri.item_id, di.input, di.expected_output, t.output
		FROM dataset_run_items ri
		JOIN dataset_items di ON di.id = ri.item_id
		JOIN traces t ON t.id = ri.trace_id
		WHERE ri.run_id = $1 AND ri.error IS NULL
		ORDER BY ri.created_at`

	rows, err := r.conn(ctx).Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	evals := make([]*ports.RunItemEvaluation, 0)
	for rows.Next() {
		var eval ports.RunItemEvaluation
		var input, expected, actual []byte

		err := rows.Scan(&eval.RunItemID, &eval.ItemID, &input, &expected, &actual)
		if err != nil {
			return nil, err
		}

		if eval.Input, err = unmarshalJSONValue(input); err != nil {
			return nil, err
		}
		if eval.ExpectedOutput, err = unmarshalJSONValue(expected); err != nil {
			return nil, err
		}
		if eval.ActualOutput, err = unmarshalJSONValue(actual); err != nil {
			return nil, err
		}

		evals = append(evals, &eval)
	}

	return evals, rows.Err()
}

func (r *DatasetRunItemRepository) SetTrace(ctx context.Context, id, traceID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE dataset_run_items
		SET trace_id = $1, error = NULL, updated_at = NOW()
		WHERE id = $2`

	result, err := r.conn(ctx).Exec(ctx, query, traceID, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrRunItemNotFound
	}

	return nil
}

func (r *DatasetRunItemRepository) SetError(ctx context.Context, id, errText string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE dataset_run_items
		SET error = $1, updated_at = NOW()
		WHERE id = $2`

	result, err := r.conn(ctx).Exec(ctx, query, errText, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrRunItemNotFound
	}

	return nil
}

func (r *DatasetRunItemRepository) scanRunItem(row pgx.Row) (*models.DatasetRunItem, error) {
	var item models.DatasetRunItem
	var traceID, errText sql.NullString
	var tID, tName, tSessionID sql.NullString
	var tInput, tOutput []byte
	var tCost sql.NullFloat64
	var tTokens sql.NullInt32
	var tDurationMS sql.NullInt64
	var tCreatedAt sql.NullTime

	err := row.Scan(
		&item.ID,
		&item.RunID,
		&item.ItemID,
		&traceID,
		&errText,
		&item.CreatedAt,
		&item.UpdatedAt,
		&tID,
		&tName,
		&tSessionID,
		&tInput,
		&tOutput,
		&tCost,
		&tTokens,
		&tDurationMS,
		&tCreatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.TraceID = getStringPtr(traceID)
	item.Error = getString(errText)

	if tID.Valid {
		trace := models.Trace{
			ID:         tID.String,
			Name:       getString(tName),
			SessionID:  getStringPtr(tSessionID),
			Cost:       tCost.Float64,
			Tokens:     int(tTokens.Int32),
			DurationMS: tDurationMS.Int64,
			CreatedAt:  tCreatedAt.Time,
		}
		if trace.Input, err = unmarshalJSONValue(tInput); err != nil {
			return nil, err
		}
		if trace.Output, err = unmarshalJSONValue(tOutput); err != nil {
			return nil, err
		}
		item.Trace = &trace
	}

	return &item, nil
}
