package services

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/mock"

	"github.com/observahq/observa/internal/domain/models"
	"github.com/observahq/observa/internal/ports"
)

// Shared mock implementations for testing

type mockIDGenerator struct {
	counter int
}

func (m *mockIDGenerator) next(prefix string) string {
	m.counter++
	return fmt.Sprintf("%s_test%d", prefix, m.counter)
}

func (m *mockIDGenerator) GeneratePromptVersionID() string  { return m.next("pv") }
func (m *mockIDGenerator) GenerateDatasetID() string        { return m.next("ds") }
func (m *mockIDGenerator) GenerateDatasetItemID() string    { return m.next("dsi") }
func (m *mockIDGenerator) GenerateDatasetRunID() string     { return m.next("dr") }
func (m *mockIDGenerator) GenerateDatasetRunItemID() string { return m.next("dri") }
func (m *mockIDGenerator) GenerateScoreID() string          { return m.next("sc") }
func (m *mockIDGenerator) GenerateTraceID() string          { return m.next("tr") }
func (m *mockIDGenerator) GenerateObservationID() string    { return m.next("ob") }
func (m *mockIDGenerator) GenerateSessionID() string        { return m.next("ses") }

// mockTxManager runs the function directly without a real transaction.
type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type MockPromptVersionRepository struct {
	mock.Mock
}

func (m *MockPromptVersionRepository) Create(ctx context.Context, version *models.PromptVersion) error {
	args := m.Called(ctx, version)
	return args.Error(0)
}

func (m *MockPromptVersionRepository) GetByNameVersion(ctx context.Context, name string, version int) (*models.PromptVersion, error) {
	args := m.Called(ctx, name, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PromptVersion), args.Error(1)
}

func (m *MockPromptVersionRepository) GetByNameState(ctx context.Context, name string, state models.PromptState) (*models.PromptVersion, error) {
	args := m.Called(ctx, name, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PromptVersion), args.Error(1)
}

func (m *MockPromptVersionRepository) NextVersion(ctx context.Context, name string) (int, error) {
	args := m.Called(ctx, name)
	return args.Int(0), args.Error(1)
}

func (m *MockPromptVersionRepository) UpdateState(ctx context.Context, name string, version int, from, to models.PromptState) (bool, error) {
	args := m.Called(ctx, name, version, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockPromptVersionRepository) UpdateDraft(ctx context.Context, version *models.PromptVersion) error {
	args := m.Called(ctx, version)
	return args.Error(0)
}

func (m *MockPromptVersionRepository) Delete(ctx context.Context, name string, version int) error {
	args := m.Called(ctx, name, version)
	return args.Error(0)
}

func (m *MockPromptVersionRepository) ListByName(ctx context.Context, name string) ([]*models.PromptVersion, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PromptVersion), args.Error(1)
}

func (m *MockPromptVersionRepository) ListNames(ctx context.Context, limit, offset int) ([]string, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockDatasetRepository struct {
	mock.Mock
}

func (m *MockDatasetRepository) Create(ctx context.Context, dataset *models.Dataset) error {
	args := m.Called(ctx, dataset)
	return args.Error(0)
}

func (m *MockDatasetRepository) GetByID(ctx context.Context, id string) (*models.Dataset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dataset), args.Error(1)
}

func (m *MockDatasetRepository) GetByName(ctx context.Context, name string) (*models.Dataset, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dataset), args.Error(1)
}

func (m *MockDatasetRepository) Update(ctx context.Context, dataset *models.Dataset) error {
	args := m.Called(ctx, dataset)
	return args.Error(0)
}

func (m *MockDatasetRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDatasetRepository) List(ctx context.Context, limit, offset int) ([]*models.Dataset, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Dataset), args.Error(1)
}

type MockDatasetItemRepository struct {
	mock.Mock
}

func (m *MockDatasetItemRepository) Create(ctx context.Context, item *models.DatasetItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockDatasetItemRepository) GetByID(ctx context.Context, id string) (*models.DatasetItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DatasetItem), args.Error(1)
}

func (m *MockDatasetItemRepository) ListByDataset(ctx context.Context, datasetID string, limit, offset int) ([]*models.DatasetItem, error) {
	args := m.Called(ctx, datasetID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DatasetItem), args.Error(1)
}

func (m *MockDatasetItemRepository) ListActiveByDataset(ctx context.Context, datasetID string) ([]*models.DatasetItem, error) {
	args := m.Called(ctx, datasetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DatasetItem), args.Error(1)
}

func (m *MockDatasetItemRepository) Archive(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDatasetItemRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

func (m *MockDatasetItemRepository) SearchSimilar(ctx context.Context, datasetID string, embedding []float32, limit int) ([]*models.DatasetItem, error) {
	args := m.Called(ctx, datasetID, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DatasetItem), args.Error(1)
}

type MockDatasetRunRepository struct {
	mock.Mock
}

func (m *MockDatasetRunRepository) Create(ctx context.Context, run *models.DatasetRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockDatasetRunRepository) GetByID(ctx context.Context, id string) (*models.DatasetRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DatasetRun), args.Error(1)
}

func (m *MockDatasetRunRepository) GetByName(ctx context.Context, datasetID, name string) (*models.DatasetRun, error) {
	args := m.Called(ctx, datasetID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DatasetRun), args.Error(1)
}

func (m *MockDatasetRunRepository) UpdateStatus(ctx context.Context, id string, from, to models.RunStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockDatasetRunRepository) UpdateTotalItems(ctx context.Context, id string, totalItems int) error {
	args := m.Called(ctx, id, totalItems)
	return args.Error(0)
}

func (m *MockDatasetRunRepository) UpdateMetrics(ctx context.Context, id string) (*models.DatasetRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DatasetRun), args.Error(1)
}

func (m *MockDatasetRunRepository) ListByDataset(ctx context.Context, datasetID string, limit, offset int) ([]*models.DatasetRun, error) {
	args := m.Called(ctx, datasetID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DatasetRun), args.Error(1)
}

type MockDatasetRunItemRepository struct {
	mock.Mock
}

func (m *MockDatasetRunItemRepository) CreateMissing(ctx context.Context, runID, datasetID string) (int, error) {
	args := m.Called(ctx, runID, datasetID)
	return args.Int(0), args.Error(1)
}

func (m *MockDatasetRunItemRepository) GetByID(ctx context.Context, id string) (*models.DatasetRunItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DatasetRunItem), args.Error(1)
}

func (m *MockDatasetRunItemRepository) ListByRun(ctx context.Context, runID string) ([]*models.DatasetRunItem, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DatasetRunItem), args.Error(1)
}

func (m *MockDatasetRunItemRepository) ListForEvaluation(ctx context.Context, runID string) ([]*ports.RunItemEvaluation, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ports.RunItemEvaluation), args.Error(1)
}

func (m *MockDatasetRunItemRepository) SetTrace(ctx context.Context, id, traceID string) error {
	args := m.Called(ctx, id, traceID)
	return args.Error(0)
}

func (m *MockDatasetRunItemRepository) SetError(ctx context.Context, id, errText string) error {
	args := m.Called(ctx, id, errText)
	return args.Error(0)
}

type MockTraceRepository struct {
	mock.Mock
}

func (m *MockTraceRepository) Create(ctx context.Context, trace *models.Trace) error {
	args := m.Called(ctx, trace)
	return args.Error(0)
}

func (m *MockTraceRepository) GetByID(ctx context.Context, id string) (*models.Trace, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trace), args.Error(1)
}

func (m *MockTraceRepository) ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]*models.Trace, error) {
	args := m.Called(ctx, sessionID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Trace), args.Error(1)
}

func (m *MockTraceRepository) CreateObservation(ctx context.Context, obs *models.Observation) error {
	args := m.Called(ctx, obs)
	return args.Error(0)
}

func (m *MockTraceRepository) ListObservations(ctx context.Context, traceID string) ([]*models.Observation, error) {
	args := m.Called(ctx, traceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Observation), args.Error(1)
}

func (m *MockTraceRepository) RecomputeMetrics(ctx context.Context, traceID string) error {
	args := m.Called(ctx, traceID)
	return args.Error(0)
}

type MockScoreRepository struct {
	mock.Mock
}

func (m *MockScoreRepository) Upsert(ctx context.Context, score *models.Score) error {
	args := m.Called(ctx, score)
	return args.Error(0)
}

func (m *MockScoreRepository) GetByID(ctx context.Context, id string) (*models.Score, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Score), args.Error(1)
}

func (m *MockScoreRepository) ListByScoreable(ctx context.Context, scoreable models.Scoreable) ([]*models.Score, error) {
	args := m.Called(ctx, scoreable)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Score), args.Error(1)
}

func (m *MockScoreRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockAgentInvoker struct {
	mock.Mock
}

func (m *MockAgentInvoker) Invoke(ctx context.Context, agentRef string, input any) (*ports.AgentResult, error) {
	args := m.Called(ctx, agentRef, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.AgentResult), args.Error(1)
}

type mockPublisher struct {
	events []ports.RunEvent
}

func (m *mockPublisher) Publish(event ports.RunEvent) {
	m.events = append(m.events, event)
}

type mockEmbeddingService struct {
	vector []float32
	err    error
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.vector, m.err
}

func (m *mockEmbeddingService) Dimensions() int {
	return len(m.vector)
}
