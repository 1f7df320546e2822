package postgres

import (
	"database/sql"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/observahq/observa/internal/domain/models"
)

func TestDatasetRunRepository_UpdateStatus_Applied(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &DatasetRunRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	mock.ExpectExec("UPDATE dataset_runs").
		WithArgs(models.RunStatusRunning, "dr_1", models.RunStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ctx := setupMockContext(mock)
	applied, err := repo.UpdateStatus(ctx, "dr_1", models.RunStatusPending, models.RunStatusRunning)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !applied {
		t.Error("expected transition to apply")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDatasetRunRepository_UpdateStatus_AlreadyTransitioned(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &DatasetRunRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	mock.ExpectExec("UPDATE dataset_runs").
		WithArgs(models.RunStatusRunning, "dr_1", models.RunStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ctx := setupMockContext(mock)
	applied, err := repo.UpdateStatus(ctx, "dr_1", models.RunStatusPending, models.RunStatusRunning)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if applied {
		t.Error("expected transition not to apply")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDatasetRunRepository_UpdateMetrics(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &DatasetRunRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	now := time.Now()
	rows := pgxmock.NewRows([]string{
		"id", "dataset_id", "name", "status", "total_items", "completed_items", "failed_items",
		"total_cost", "total_tokens", "metadata", "created_at", "updated_at", "completed_at",
	}).AddRow("dr_1", "ds_1", "baseline", "running", 10, 7, 2, 0.14, 8200, []byte(`{}`), now, now, sql.NullTime{})

	mock.ExpectQuery("UPDATE dataset_runs").
		WithArgs("dr_1").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	run, err := repo.UpdateMetrics(ctx, "dr_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.CompletedItems != 7 || run.FailedItems != 2 {
		t.Errorf("unexpected counters: %+v", run)
	}
	if run.TotalCost != 0.14 || run.TotalTokens != 8200 {
		t.Errorf("unexpected aggregates: %+v", run)
	}
	if run.ProgressPercentage() != 90 {
		t.Errorf("expected 90%% progress, got %v", run.ProgressPercentage())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDatasetRunRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &DatasetRunRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	now := time.Now()
	run := &models.DatasetRun{
		ID:        "dr_1",
		DatasetID: "ds_1",
		Name:      "baseline",
		Status:    models.RunStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectExec("INSERT INTO dataset_runs").
		WithArgs(
			run.ID, run.DatasetID, run.Name, run.Status, 0, 0, 0,
			float64(0), 0, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	if err := repo.Create(ctx, run); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
