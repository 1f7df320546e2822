package postgres

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
)

type SessionRepository struct {
	BaseRepository
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO sessions (id, name, user_id, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.conn(ctx).Exec(ctx, query,
		session.ID,
		nullString(session.Name),
		nullString(session.UserID),
		session.CreatedAt,
	)

	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, name, user_id, created_at
		FROM sessions
		WHERE id = $1`

	session, err := r.scanSession(r.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if checkNoRows(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

func (r *SessionRepository) List(ctx context.Context, limit, offset int) ([]*models.Session, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, name, user_id, created_at
		FROM sessions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]*models.Session, 0)
	for rows.Next() {
		session, err := r.scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

func (r *SessionRepository) scanSession(row pgx.Row) (*models.Session, error) {
	var session models.Session
	var name, userID sql.NullString

	err := row.Scan(
		&session.ID,
		&name,
		&userID,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	session.Name = getString(name)
	session.UserID = getString(userID)

	return &session, nil
}
