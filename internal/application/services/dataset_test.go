package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
)

func TestDatasetService_CreateDataset(t *testing.T) {
	datasets := new(MockDatasetRepository)
	items := new(MockDatasetItemRepository)
	svc := NewDatasetService(datasets, items, &mockIDGenerator{}, nil)

	datasets.On("GetByName", mock.Anything, "qa-regression").Return(nil, domain.ErrDatasetNotFound)
	datasets.On("Create", mock.Anything, mock.MatchedBy(func(d *models.Dataset) bool {
		return d.Name == "qa-regression" && d.AgentReference == "gpt-test"
	})).Return(nil)

	dataset, err := svc.CreateDataset(context.Background(), "qa-regression", "regression suite", "gpt-test", nil)

	assert.NoError(t, err)
	assert.NotEmpty(t, dataset.ID)
	datasets.AssertExpectations(t)
}

func TestDatasetService_CreateDataset_DuplicateName(t *testing.T) {
	datasets := new(MockDatasetRepository)
	svc := NewDatasetService(datasets, new(MockDatasetItemRepository), &mockIDGenerator{}, nil)

	datasets.On("GetByName", mock.Anything, "qa-regression").Return(&models.Dataset{ID: "ds_1", Name: "qa-regression"}, nil)

	_, err := svc.CreateDataset(context.Background(), "qa-regression", "", "", nil)

	assert.ErrorIs(t, err, domain.ErrDatasetExists)
	datasets.AssertNotCalled(t, "Create")
}

func TestDatasetService_AddItem(t *testing.T) {
	datasets := new(MockDatasetRepository)
	items := new(MockDatasetItemRepository)
	svc := NewDatasetService(datasets, items, &mockIDGenerator{}, nil)

	datasets.On("GetByID", mock.Anything, "ds_1").Return(&models.Dataset{ID: "ds_1"}, nil)
	items.On("Create", mock.Anything, mock.MatchedBy(func(i *models.DatasetItem) bool {
		return i.DatasetID == "ds_1" && i.Status == models.ItemStatusActive && i.Embedding == nil
	})).Return(nil)

	item, err := svc.AddItem(context.Background(), "ds_1", "What is 2+2?", "4", nil, nil)

	assert.NoError(t, err)
	assert.Equal(t, "What is 2+2?", item.Input)
	items.AssertExpectations(t)
}

func TestDatasetService_AddItem_NilInput(t *testing.T) {
	datasets := new(MockDatasetRepository)
	items := new(MockDatasetItemRepository)
	svc := NewDatasetService(datasets, items, &mockIDGenerator{}, nil)

	_, err := svc.AddItem(context.Background(), "ds_1", nil, "4", nil, nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	items.AssertNotCalled(t, "Create")
}

func TestDatasetService_AddItem_WithEmbedding(t *testing.T) {
	datasets := new(MockDatasetRepository)
	items := new(MockDatasetItemRepository)
	embeddings := &mockEmbeddingService{vector: []float32{0.1, 0.2, 0.3}}
	svc := NewDatasetService(datasets, items, &mockIDGenerator{}, embeddings)

	datasets.On("GetByID", mock.Anything, "ds_1").Return(&models.Dataset{ID: "ds_1"}, nil)
	items.On("Create", mock.Anything, mock.MatchedBy(func(i *models.DatasetItem) bool {
		return len(i.Embedding) == 3
	})).Return(nil)

	item, err := svc.AddItem(context.Background(), "ds_1", "question", "answer", nil, nil)

	assert.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, item.Embedding)
}

func TestDatasetService_AddItem_EmbeddingFailureStoresWithout(t *testing.T) {
	datasets := new(MockDatasetRepository)
	items := new(MockDatasetItemRepository)
	embeddings := &mockEmbeddingService{err: errors.New("embedding service down")}
	svc := NewDatasetService(datasets, items, &mockIDGenerator{}, embeddings)

	datasets.On("GetByID", mock.Anything, "ds_1").Return(&models.Dataset{ID: "ds_1"}, nil)
	items.On("Create", mock.Anything, mock.MatchedBy(func(i *models.DatasetItem) bool {
		return i.Embedding == nil
	})).Return(nil)

	item, err := svc.AddItem(context.Background(), "ds_1", "question", "answer", nil, nil)

	assert.NoError(t, err)
	assert.Nil(t, item.Embedding)
}

func TestDatasetService_SearchSimilarItems(t *testing.T) {
	datasets := new(MockDatasetRepository)
	items := new(MockDatasetItemRepository)
	embeddings := &mockEmbeddingService{vector: []float32{0.5, 0.5}}
	svc := NewDatasetService(datasets, items, &mockIDGenerator{}, embeddings)

	nearest := []*models.DatasetItem{{ID: "dsi_1"}, {ID: "dsi_2"}}
	items.On("SearchSimilar", mock.Anything, "ds_1", []float32{0.5, 0.5}, 10).Return(nearest, nil)

	found, err := svc.SearchSimilarItems(context.Background(), "ds_1", "similar question", 10)

	assert.NoError(t, err)
	assert.Len(t, found, 2)
	items.AssertExpectations(t)
}

func TestDatasetService_SearchSimilarItems_NoEmbeddingService(t *testing.T) {
	svc := NewDatasetService(new(MockDatasetRepository), new(MockDatasetItemRepository), &mockIDGenerator{}, nil)

	_, err := svc.SearchSimilarItems(context.Background(), "ds_1", "query", 10)

	assert.ErrorIs(t, err, domain.ErrEmbeddingsFailed)
}

func TestEvaluatorConfigsRaw(t *testing.T) {
	withConfigs := &models.Dataset{
		ID: "ds_1",
		Metadata: map[string]any{
			"evaluators": []any{
				map[string]any{"type": "exact_match"},
				map[string]any{"type": "contains", "options": map[string]any{"keywords": []any{"paris"}}},
			},
		},
	}
	assert.Len(t, EvaluatorConfigsRaw(withConfigs), 2)

	assert.Nil(t, EvaluatorConfigsRaw(&models.Dataset{ID: "ds_2"}))
	assert.Nil(t, EvaluatorConfigsRaw(&models.Dataset{ID: "ds_3", Metadata: map[string]any{"evaluators": "bad"}}))
}
