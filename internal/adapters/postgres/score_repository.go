package postgres

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
)

type ScoreRepository struct {
	BaseRepository
}

func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

const scoreColumns = `id, scoreable_type, scoreable_id, observation_id, name, value, string_value, data_type, source, comment, created_by, created_at, updated_at`

// Upsert writes a score, replacing the value of an existing row when the
// same source already scored the same dimension on the same owner. The
// conflict target mirrors the unique index on
// (scoreable_type, scoreable_id, name, source).
func (r *ScoreRepository) Upsert(ctx context.Context, score *models.Score) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO scores (
			id, scoreable_type, scoreable_id, observation_id, name, value,
			string_value, data_type, source, comment, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		ON CONFLICT (scoreable_type, scoreable_id, name, source) DO UPDATE SET
			value = EXCLUDED.value,
			string_value = EXCLUDED.string_value,
			data_type = EXCLUDED.data_type,
			comment = EXCLUDED.comment,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	return r.conn(ctx).QueryRow(ctx, query,
		score.ID,
		score.Scoreable.Type,
		score.Scoreable.ID,
		nullStringPtr(score.ObservationID),
		score.Name,
		score.Value,
		nullString(score.StringValue),
		score.DataType,
		score.Source,
		nullString(score.Comment),
		nullString(score.CreatedBy),
		score.CreatedAt,
		score.UpdatedAt,
	).Scan(&score.ID, &score.CreatedAt, &score.UpdatedAt)
}

func (r *ScoreRepository) GetByID(ctx context.Context, id string) (*models.Score, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + scoreColumns + `
		FROM scores
		WHERE id = $1`

	score, err := r.scanScore(r.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if checkNoRows(err) {
			return nil, domain.ErrScoreNotFound
		}
		return nil, err
	}
	return score, nil
}

func (r *ScoreRepository) ListByScoreable(ctx context.Context, scoreable models.Scoreable) ([]*models.Score, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + scoreColumns + `
		FROM scores
		WHERE scoreable_type = $1 AND scoreable_id = $2
		ORDER BY name, source`

	rows, err := r.conn(ctx).Query(ctx, query, scoreable.Type, scoreable.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make([]*models.Score, 0)
	for rows.Next() {
		score, err := r.scanScore(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}

	return scores, rows.Err()
}

func (r *ScoreRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `DELETE FROM scores WHERE id = $1`

	result, err := r.conn(ctx).Exec(ctx, query, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrScoreNotFound
	}

	return nil
}

func (r *ScoreRepository) scanScore(row pgx.Row) (*models.Score, error) {
	var score models.Score
	var observationID, stringValue, comment, createdBy sql.NullString

	err := row.Scan(
		&score.ID,
		&score.Scoreable.Type,
		&score.Scoreable.ID,
		&observationID,
		&score.Name,
		&score.Value,
		&stringValue,
		&score.DataType,
		&score.Source,
		&comment,
		&createdBy,
		&score.CreatedAt,
		&score.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	score.ObservationID = getStringPtr(observationID)
	score.StringValue = getString(stringValue)
	score.Comment = getString(comment)
	score.CreatedBy = getString(createdBy)

	return &score, nil
}
