package postgres

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
)

type TraceRepository struct {
	BaseRepository
}

func NewTraceRepository(pool *pgxpool.Pool) *TraceRepository {
	return &TraceRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

const traceColumns = `id, name, session_id, input, output, metadata, cost, tokens, duration_ms, created_at`

func (r *TraceRepository) Create(ctx context.Context, trace *models.Trace) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	input, err := marshalJSONValue(trace.Input)
	if err != nil {
		return err
	}
	output, err := marshalJSONValue(trace.Output)
	if err != nil {
		return err
	}
	metadata, err := marshalJSONField(&trace.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO traces (
			id, name, session_id, input, output, metadata, cost, tokens, duration_ms, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err = r.conn(ctx).Exec(ctx, query,
		trace.ID,
		nullString(trace.Name),
		nullStringPtr(trace.SessionID),
		input,
		output,
		metadata,
		trace.Cost,
		trace.Tokens,
		trace.DurationMS,
		trace.CreatedAt,
	)

	return err
}

func (r *TraceRepository) GetByID(ctx context.Context, id string) (*models.Trace, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + traceColumns + `
		FROM traces
		WHERE id = $1`

	trace, err := r.scanTrace(r.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if checkNoRows(err) {
			return nil, domain.ErrTraceNotFound
		}
		return nil, err
	}
	return trace, nil
}

func (r *TraceRepository) ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]*models.Trace, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + traceColumns + `
		FROM traces
		WHERE session_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3`

	rows, err := r.conn(ctx).Query(ctx, query, sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	traces := make([]*models.Trace, 0)
	for rows.Next() {
		trace, err := r.scanTrace(rows)
		if err != nil {
			return nil, err
		}
		traces = append(traces, trace)
	}

	return traces, rows.Err()
}

func (r *TraceRepository) CreateObservation(ctx context.Context, obs *models.Observation) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	input, err := marshalJSONValue(obs.Input)
	if err != nil {
		return err
	}
	output, err := marshalJSONValue(obs.Output)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO observations (
			id, trace_id, type, name, model, prompt_tokens, completion_tokens,
			total_tokens, cost, input, output, started_at, ended_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)`

	_, err = r.conn(ctx).Exec(ctx, query,
		obs.ID,
		obs.TraceID,
		obs.Type,
		nullString(obs.Name),
		nullString(obs.Model),
		obs.PromptTokens,
		obs.CompletionTokens,
		obs.TotalTokens,
		obs.Cost,
		input,
		output,
		obs.StartedAt,
		nullTime(obs.EndedAt),
	)

	return err
}

func (r *TraceRepository) ListObservations(ctx context.Context, traceID string) ([]*models.Observation, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, trace_id, type, name, model, prompt_tokens, completion_tokens,
			   total_tokens, cost, input, output, started_at, ended_at
		FROM observations
		WHERE trace_id = $1
		ORDER BY started_at`

	rows, err := r.conn(ctx).Query(ctx, query, traceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	observations := make([]*models.Observation, 0)
	for rows.Next() {
		var obs models.Observation
		var name, model sql.NullString
		var input, output []byte
		var endedAt sql.NullTime

		err := rows.Scan(
			&obs.ID,
			&obs.TraceID,
			&obs.Type,
			&name,
			&model,
			&obs.PromptTokens,
			&obs.CompletionTokens,
			&obs.TotalTokens,
			&obs.Cost,
			&input,
			&output,
			&obs.StartedAt,
			&endedAt,
		)
		if err != nil {
			return nil, err
		}

		obs.Name = getString(name)
		obs.Model = getString(model)
		if obs.Input, err = unmarshalJSONValue(input); err != nil {
			return nil, err
		}
		if obs.Output, err = unmarshalJSONValue(output); err != nil {
			return nil, err
		}
		obs.EndedAt = getTimePtr(endedAt)

		observations = append(observations, &obs)
	}

	return observations, rows.Err()
}

// RecomputeMetrics refreshes cost and token totals from the trace's
// observations. Derived, never incremented.
func (r *TraceRepository) RecomputeMetrics(ctx context.Context, traceID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE traces
		SET cost = agg.cost, tokens = agg.tokens
		FROM (
			SELECT COALESCE(SUM(cost), 0) AS cost, COALESCE(SUM(total_tokens), 0) AS tokens
			FROM observations
			WHERE trace_id = $1
		) agg
		WHERE traces.id = $1`

	result, err := r.conn(ctx).Exec(ctx, query, traceID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrTraceNotFound
	}

	return nil
}

func (r *TraceRepository) scanTrace(row pgx.Row) (*models.Trace, error) {
	var trace models.Trace
	var name, sessionID sql.NullString
	var input, output, metadata []byte

	err := row.Scan(
		&trace.ID,
		&name,
		&sessionID,
		&input,
		&output,
		&metadata,
		&trace.Cost,
		&trace.Tokens,
		&trace.DurationMS,
		&trace.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	trace.Name = getString(name)
	trace.SessionID = getStringPtr(sessionID)
	if trace.Input, err = unmarshalJSONValue(input); err != nil {
		return nil, err
	}
	if trace.Output, err = unmarshalJSONValue(output); err != nil {
		return nil, err
	}
	if err := unmarshalJSONField(metadata, &trace.Metadata); err != nil {
		return nil, err
	}

	return &trace, nil
}
