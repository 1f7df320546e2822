package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
)

func TestScoreRepository_Upsert_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &ScoreRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	now := time.Now()
	score := &models.Score{
		ID:        "sc_1",
		Scoreable: models.RunItemScoreable("dri_1"),
		Name:      "exact_match",
		Value:     1,
		DataType:  models.ScoreDataBoolean,
		Source:    models.ScoreSourceProgrammatic,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectQuery("INSERT INTO scores").
		WithArgs(
			score.ID, models.ScoreableDatasetRunItem, "dri_1", pgxmock.AnyArg(),
			score.Name, score.Value, pgxmock.AnyArg(), score.DataType, score.Source,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow("sc_1", now, now))

	ctx := setupMockContext(mock)
	if err := repo.Upsert(ctx, score); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestScoreRepository_Upsert_ConflictKeepsOriginalID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &ScoreRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	created := time.Now().Add(-time.Hour)
	updated := time.Now()
	score := &models.Score{
		ID:        "sc_new",
		Scoreable: models.TraceScoreable("tr_1"),
		Name:      "helpfulness",
		Value:     0.8,
		DataType:  models.ScoreDataNumeric,
		Source:    models.ScoreSourceLLMJudge,
		CreatedAt: updated,
		UpdatedAt: updated,
	}

	// The same judge re-scores the same trace dimension; the existing row
	// wins and the caller sees its original ID and created_at.
	mock.ExpectQuery("INSERT INTO scores").
		WithArgs(
			score.ID, models.ScoreableTrace, "tr_1", pgxmock.AnyArg(),
			score.Name, score.Value, pgxmock.AnyArg(), score.DataType, score.Source,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow("sc_existing", created, updated))

	ctx := setupMockContext(mock)
	if err := repo.Upsert(ctx, score); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if score.ID != "sc_existing" {
		t.Errorf("expected existing score ID, got %q", score.ID)
	}
	if !score.CreatedAt.Equal(created) {
		t.Errorf("expected original created_at to survive the upsert")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestScoreRepository_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &ScoreRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	mock.ExpectQuery("SELECT (.+) FROM scores").
		WithArgs("sc_missing").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "scoreable_type", "scoreable_id", "observation_id", "name", "value",
			"string_value", "data_type", "source", "comment", "created_by", "created_at", "updated_at",
		}))

	ctx := setupMockContext(mock)
	_, err = repo.GetByID(ctx, "sc_missing")
	if !errors.Is(err, domain.ErrScoreNotFound) {
		t.Errorf("expected ErrScoreNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestScoreRepository_ListByScoreable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &ScoreRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	now := time.Now()
	rows := pgxmock.NewRows([]string{
		"id", "scoreable_type", "scoreable_id", "observation_id", "name", "value",
		"string_value", "data_type", "source", "comment", "created_by", "created_at", "updated_at",
	}).
		AddRow("sc_1", "dataset_run_item", "dri_1", nullString(""), "contains", 0.5, nullString(""), "numeric", "programmatic", nullString(""), nullString(""), now, now).
		AddRow("sc_2", "dataset_run_item", "dri_1", nullString(""), "exact_match", 1.0, nullString("true"), "boolean", "programmatic", nullString(""), nullString(""), now, now)

	mock.ExpectQuery("SELECT (.+) FROM scores").
		WithArgs(models.ScoreableDatasetRunItem, "dri_1").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	scores, err := repo.ListByScoreable(ctx, models.RunItemScoreable("dri_1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(scores) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(scores))
	}
	if scores[0].Name != "contains" || scores[0].Value != 0.5 {
		t.Errorf("unexpected first score: %+v", scores[0])
	}
	if scores[1].StringValue != "true" {
		t.Errorf("expected string value true, got %q", scores[1].StringValue)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
