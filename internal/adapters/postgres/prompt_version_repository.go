package postgres

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
)

type PromptVersionRepository struct {
	BaseRepository
}

func NewPromptVersionRepository(pool *pgxpool.Pool) *PromptVersionRepository {
	return &PromptVersionRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

const promptVersionColumns = `id, name, version, state, text, config, commit_message, created_by, created_at, updated_at`

func (r *PromptVersionRepository) Create(ctx context.Context, version *models.PromptVersion) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	config, err := marshalJSONField(&version.Config)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO prompt_versions (
			id, name, version, state, text, config, commit_message, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err = r.conn(ctx).Exec(ctx, query,
		version.ID,
		version.Name,
		version.Version,
		version.State,
		version.Text,
		config,
		nullString(version.CommitMessage),
		nullString(version.CreatedBy),
		version.CreatedAt,
		version.UpdatedAt,
	)

	return err
}

func (r *PromptVersionRepository) GetByNameVersion(ctx context.Context, name string, version int) (*models.PromptVersion, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + promptVersionColumns + `
		FROM prompt_versions
		WHERE name = $1 AND version = $2`

	return r.scanVersion(r.conn(ctx).QueryRow(ctx, query, name, version))
}

func (r *PromptVersionRepository) GetByNameState(ctx context.Context, name string, state models.PromptState) (*models.PromptVersion, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + promptVersionColumns + `
		FROM prompt_versions
		WHERE name = $1 AND state = $2
		ORDER BY version DESC
		LIMIT 1`

	return r.scanVersion(r.conn(ctx).QueryRow(ctx, query, name, state))
}

func (r *PromptVersionRepository) NextVersion(ctx context.Context, name string) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT COALESCE(MAX(version), 0) + 1 FROM prompt_versions WHERE name = $1`

	var next int
	if err := r.conn(ctx).QueryRow(ctx, query, name).Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

// UpdateState applies a transition with the source state in the WHERE clause,
// so a concurrent transition on the same row cannot double-apply. The caller
// validates the transition table before reaching here.
func (r *PromptVersionRepository) UpdateState(ctx context.Context, name string, version int, from, to models.PromptState) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE prompt_versions
		SET state = $1, updated_at = NOW()
		WHERE name = $2 AND version = $3 AND state = $4`

	result, err := r.conn(ctx).Exec(ctx, query, to, name, version, from)
	if err != nil {
		return false, err
	}

	return result.RowsAffected() > 0, nil
}

func (r *PromptVersionRepository) UpdateDraft(ctx context.Context, version *models.PromptVersion) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	config, err := marshalJSONField(&version.Config)
	if err != nil {
		return err
	}

	query := `
		UPDATE prompt_versions
		SET text = $1, config = $2, commit_message = $3, updated_at = NOW()
		WHERE name = $4 AND version = $5 AND state = $6`

	result, err := r.conn(ctx).Exec(ctx, query,
		version.Text,
		config,
		nullString(version.CommitMessage),
		version.Name,
		version.Version,
		models.PromptStateDraft,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.NewDomainError(domain.ErrPromptNotEditable, "only draft versions can be edited")
	}

	return nil
}

func (r *PromptVersionRepository) Delete(ctx context.Context, name string, version int) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		DELETE FROM prompt_versions
		WHERE name = $1 AND version = $2 AND state != $3`

	result, err := r.conn(ctx).Exec(ctx, query, name, version, models.PromptStateProduction)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.NewDomainError(domain.ErrPromptProtected, "version not found or in production")
	}

	return nil
}

func (r *PromptVersionRepository) ListByName(ctx context.Context, name string) ([]*models.PromptVersion, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + promptVersionColumns + `
		FROM prompt_versions
		WHERE name = $1
		ORDER BY version DESC`

	rows, err := r.conn(ctx).Query(ctx, query, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanVersions(rows)
}

func (r *PromptVersionRepository) ListNames(ctx context.Context, limit, offset int) ([]string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT DISTINCT name
		FROM prompt_versions
		ORDER BY name
		LIMIT $1 OFFSET $2`

	rows, err := r.conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

func (r *PromptVersionRepository) scanVersion(row pgx.Row) (*models.PromptVersion, error) {
	var version models.PromptVersion
	var config []byte
	var commitMessage, createdBy sql.NullString

	err := row.Scan(
		&version.ID,
		&version.Name,
		&version.Version,
		&version.State,
		&version.Text,
		&config,
		&commitMessage,
		&createdBy,
		&version.CreatedAt,
		&version.UpdatedAt,
	)
	if err != nil {
		if checkNoRows(err) {
			return nil, domain.ErrPromptNotFound
		}
		return nil, err
	}

	if err := unmarshalJSONField(config, &version.Config); err != nil {
		return nil, err
	}
	version.CommitMessage = getString(commitMessage)
	version.CreatedBy = getString(createdBy)

	return &version, nil
}

func (r *PromptVersionRepository) scanVersions(rows pgx.Rows) ([]*models.PromptVersion, error) {
	versions := make([]*models.PromptVersion, 0)

	for rows.Next() {
		var version models.PromptVersion
		var config []byte
		var commitMessage, createdBy sql.NullString

		err := rows.Scan(
			&version.ID,
			&version.Name,
			&version.Version,
			&version.State,
			&version.Text,
			&config,
			&commitMessage,
			&createdBy,
			&version.CreatedAt,
			&version.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if err := unmarshalJSONField(config, &version.Config); err != nil {
			return nil, err
		}
		version.CommitMessage = getString(commitMessage)
		version.CreatedBy = getString(createdBy)

		versions = append(versions, &version)
	}

	return versions, rows.Err()
}
