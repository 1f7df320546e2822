package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
)

type testIDGenerator struct {
	counter int
}

func newTestIDGenerator() *testIDGenerator {
	return &testIDGenerator{counter: 0}
}

func (g *testIDGenerator) next(prefix string) string {
	g.counter++
	return fmt.Sprintf("%s_%d", prefix, g.counter)
}

func (g *testIDGenerator) GeneratePromptVersionID() string  { return g.next("pv") }
func (g *testIDGenerator) GenerateDatasetID() string        { return g.next("ds") }
func (g *testIDGenerator) GenerateDatasetItemID() string    { return g.next("dsi") }
func (g *testIDGenerator) GenerateDatasetRunID() string     { return g.next("dr") }
func (g *testIDGenerator) GenerateDatasetRunItemID() string { return g.next("dri") }
func (g *testIDGenerator) GenerateScoreID() string          { return g.next("sc") }
func (g *testIDGenerator) GenerateTraceID() string          { return g.next("tr") }
func (g *testIDGenerator) GenerateObservationID() string    { return g.next("ob") }
func (g *testIDGenerator) GenerateSessionID() string        { return g.next("ses") }

func TestDatasetRunItemRepository_CreateMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &DatasetRunItemRepository{
		BaseRepository: BaseRepository{pool: nil},
		idGenerator:    newTestIDGenerator(),
	}

	mock.ExpectQuery("SELECT di.id").
		WithArgs("ds_1", models.ItemStatusActive, "dr_1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).
			AddRow("dsi_a").
			AddRow("dsi_b"))

	mock.ExpectExec("INSERT INTO dataset_run_items").
		WithArgs("dri_1", "dr_1", "dsi_a").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO dataset_run_items").
		WithArgs("dri_2", "dr_1", "dsi_b").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	created, err := repo.CreateMissing(ctx, "dr_1", "ds_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != 2 {
		t.Errorf("expected 2 created, got %d", created)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDatasetRunItemRepository_CreateMissing_AlreadyMaterialized(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &DatasetRunItemRepository{
		BaseRepository: BaseRepository{pool: nil},
		idGenerator:    newTestIDGenerator(),
	}

	// Every active item already has a run item, so nothing is inserted.
	mock.ExpectQuery("SELECT di.id").
		WithArgs("ds_1", models.ItemStatusActive, "dr_1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	ctx := setupMockContext(mock)
	created, err := repo.CreateMissing(ctx, "dr_1", "ds_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != 0 {
		t.Errorf("expected 0 created, got %d", created)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDatasetRunItemRepository_SetTrace(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &DatasetRunItemRepository{
		BaseRepository: BaseRepository{pool: nil},
		idGenerator:    newTestIDGenerator(),
	}

	mock.ExpectExec("UPDATE dataset_run_items").
		WithArgs("tr_9", "dri_1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ctx := setupMockContext(mock)
	if err := repo.SetTrace(ctx, "dri_1", "tr_9"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDatasetRunItemRepository_SetError_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &DatasetRunItemRepository{
		BaseRepository: BaseRepository{pool: nil},
		idGenerator:    newTestIDGenerator(),
	}

	mock.ExpectExec("UPDATE dataset_run_items").
		WithArgs("agent timeout", "dri_missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ctx := setupMockContext(mock)
	err = repo.SetError(ctx, "dri_missing", "agent timeout")
	if !errors.Is(err, domain.ErrRunItemNotFound) {
		t.Errorf("expected ErrRunItemNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDatasetRunItemRepository_ListByRun_DerivedStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &DatasetRunItemRepository{
		BaseRepository: BaseRepository{pool: nil},
		idGenerator:    newTestIDGenerator(),
	}

	now := time.Now()
	columns := []string{
		"id", "run_id", "item_id", "trace_id", "error", "created_at", "updated_at",
		"t_id", "t_name", "t_session_id", "t_input", "t_output", "t_cost", "t_tokens", "t_duration_ms", "t_created_at",
	}
	rows := pgxmock.NewRows(columns).
		AddRow("dri_1", "dr_1", "dsi_a", nullString("tr_1"), nullString(""), now, now,
			nullString("tr_1"), nullString("agent"), nullString(""), []byte(`"hi"`), []byte(`"hello"`),
			sql.NullFloat64{Float64: 0.002, Valid: true}, sql.NullInt32{Int32: 42, Valid: true},
			sql.NullInt64{Int64: 950, Valid: true}, sql.NullTime{Time: now, Valid: true}).
		AddRow("dri_2", "dr_1", "dsi_b", nullString(""), nullString("agent timeout"), now, now,
			nullString(""), nullString(""), nullString(""), []byte(nil), []byte(nil),
			sql.NullFloat64{}, sql.NullInt32{}, sql.NullInt64{}, sql.NullTime{}).
		AddRow("dri_3", "dr_1", "dsi_c", nullString(""), nullString(""), now, now,
			nullString(""), nullString(""), nullString(""), []byte(nil), []byte(nil),
			sql.NullFloat64{}, sql.NullInt32{}, sql.NullInt64{}, sql.NullTime{})

	mock.ExpectQuery("SELECT (.+) FROM dataset_run_items").
		WithArgs("dr_1").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	items, err := repo.ListByRun(ctx, "dr_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Status() != models.RunItemStatusSucceeded {
		t.Errorf("expected succeeded, got %s", items[0].Status())
	}
	if items[0].Trace == nil || items[0].Trace.Tokens != 42 {
		t.Errorf("expected joined trace with 42 tokens, got %+v", items[0].Trace)
	}
	if items[1].Status() != models.RunItemStatusFailed {
		t.Errorf("expected failed, got %s", items[1].Status())
	}
	if items[2].Status() != models.RunItemStatusPending {
		t.Errorf("expected pending, got %s", items[2].Status())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
