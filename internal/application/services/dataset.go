package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
	"github.com/observahq/observa/internal/ports"
)

// DatasetService manages datasets and their items, including embedding
// generation for similarity search.
type DatasetService struct {
	datasets    ports.DatasetRepository
	items       ports.DatasetItemRepository
	idGenerator ports.IDGenerator
	embeddings  ports.EmbeddingService
}

// NewDatasetService creates a dataset service. The embedding service may be
// nil; items are then stored without embeddings and similarity search is
// unavailable.
func NewDatasetService(
	datasets ports.DatasetRepository,
	items ports.DatasetItemRepository,
	idGenerator ports.IDGenerator,
	embeddings ports.EmbeddingService,
) *DatasetService {
	return &DatasetService{
		datasets:    datasets,
		items:       items,
		idGenerator: idGenerator,
		embeddings:  embeddings,
	}
}

// CreateDataset creates a named dataset. Names are unique.
func (s *DatasetService) CreateDataset(ctx context.Context, name, description, agentReference string, metadata map[string]any) (*models.Dataset, error) {
	if err := ValidateRequired(name, "dataset name"); err != nil {
		return nil, err
	}

	if existing, err := s.datasets.GetByName(ctx, name); err == nil && existing != nil {
		return nil, domain.NewDomainError(domain.ErrDatasetExists, "dataset "+name+" already exists")
	} else if err != nil && !errors.Is(err, domain.ErrDatasetNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	dataset := &models.Dataset{
		ID:             s.idGenerator.GenerateDatasetID(),
		Name:           name,
		Description:    description,
		AgentReference: agentReference,
		Metadata:       metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.datasets.Create(ctx, dataset); err != nil {
		return nil, err
	}
	return dataset, nil
}

func (s *DatasetService) GetDataset(ctx context.Context, id string) (*models.Dataset, error) {
	if err := ValidateID(id, "dataset"); err != nil {
		return nil, err
	}
	return s.datasets.GetByID(ctx, id)
}

func (s *DatasetService) GetDatasetByName(ctx context.Context, name string) (*models.Dataset, error) {
	if err := ValidateRequired(name, "dataset name"); err != nil {
		return nil, err
	}
	return s.datasets.GetByName(ctx, name)
}

func (s *DatasetService) UpdateDataset(ctx context.Context, dataset *models.Dataset) error {
	if err := ValidateID(dataset.ID, "dataset"); err != nil {
		return err
	}
	if err := ValidateRequired(dataset.Name, "dataset name"); err != nil {
		return err
	}
	return s.datasets.Update(ctx, dataset)
}

func (s *DatasetService) DeleteDataset(ctx context.Context, id string) error {
	if err := ValidateID(id, "dataset"); err != nil {
		return err
	}
	return s.datasets.Delete(ctx, id)
}

func (s *DatasetService) ListDatasets(ctx context.Context, limit, offset int) ([]*models.Dataset, error) {
	return s.datasets.List(ctx, normalizeLimit(limit), offset)
}

// AddItem stores a new active item. When an embedding service is configured
// the item input is embedded; embedding failures are logged and the item is
// stored without one.
func (s *DatasetService) AddItem(ctx context.Context, datasetID string, input, expectedOutput any, sourceTraceID *string, metadata map[string]any) (*models.DatasetItem, error) {
	if err := ValidateID(datasetID, "dataset"); err != nil {
		return nil, err
	}
	if input == nil {
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "item input is required")
	}

	if _, err := s.datasets.GetByID(ctx, datasetID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := &models.DatasetItem{
		ID:             s.idGenerator.GenerateDatasetItemID(),
		DatasetID:      datasetID,
		Input:          input,
		ExpectedOutput: expectedOutput,
		Status:         models.ItemStatusActive,
		SourceTraceID:  sourceTraceID,
		Metadata:       metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if s.embeddings != nil {
		embedding, err := s.embeddings.Embed(ctx, models.Stringify(input))
		if err != nil {
			log.Printf("[DatasetService] embedding item input failed, storing without: %v", err)
		} else {
			item.Embedding = embedding
		}
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *DatasetService) GetItem(ctx context.Context, id string) (*models.DatasetItem, error) {
	if err := ValidateID(id, "dataset item"); err != nil {
		return nil, err
	}
	return s.items.GetByID(ctx, id)
}

func (s *DatasetService) ListItems(ctx context.Context, datasetID string, limit, offset int) ([]*models.DatasetItem, error) {
	if err := ValidateID(datasetID, "dataset"); err != nil {
		return nil, err
	}
	return s.items.ListByDataset(ctx, datasetID, normalizeLimit(limit), offset)
}

// ArchiveItem excludes an item from future runs without touching history.
func (s *DatasetService) ArchiveItem(ctx context.Context, id string) error {
	if err := ValidateID(id, "dataset item"); err != nil {
		return err
	}
	return s.items.Archive(ctx, id)
}

// SearchSimilarItems embeds the query text and returns the nearest active
// items of the dataset.
func (s *DatasetService) SearchSimilarItems(ctx context.Context, datasetID, query string, limit int) ([]*models.DatasetItem, error) {
	if err := ValidateID(datasetID, "dataset"); err != nil {
		return nil, err
	}
	if err := ValidateRequired(query, "query"); err != nil {
		return nil, err
	}
	if s.embeddings == nil {
		return nil, domain.NewDomainError(domain.ErrEmbeddingsFailed, "no embedding service configured")
	}

	embedding, err := s.embeddings.Embed(ctx, query)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrEmbeddingsFailed, err.Error())
	}

	return s.items.SearchSimilar(ctx, datasetID, embedding, normalizeLimit(limit))
}

// EvaluatorConfigsRaw extracts the raw evaluator configuration list from a
// dataset's metadata, nil when none is set.
func EvaluatorConfigsRaw(dataset *models.Dataset) []any {
	if dataset.Metadata == nil {
		return nil
	}
	configs, ok := dataset.Metadata["evaluators"].([]any)
	if !ok {
		return nil
	}
	return configs
}
