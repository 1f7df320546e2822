// Package transfer moves datasets between deployments as msgpack archives.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/observahq/observa/internal/domain"
	"github.com/observahq/observa/internal/domain/models"
	"github.com/observahq/observa/internal/ports"
)

// FormatVersion is bumped on any incompatible envelope change.
const FormatVersion = 1

// Envelope is the on-wire archive: one dataset and its items.
type Envelope struct {
	Version    int           `msgpack:"version"`
	ExportedAt time.Time     `msgpack:"exported_at"`
	Dataset    DatasetRecord `msgpack:"dataset"`
	Items      []ItemRecord  `msgpack:"items"`
}

// DatasetRecord carries the portable dataset fields. IDs are never
// exported; the importer allocates fresh ones.
type DatasetRecord struct {
	Name           string         `msgpack:"name"`
	Description    string         `msgpack:"description,omitempty"`
	AgentReference string         `msgpack:"agent_reference,omitempty"`
	Metadata       map[string]any `msgpack:"metadata,omitempty"`
}

// ItemRecord carries one portable dataset item. Embeddings are not
// exported; the importing deployment regenerates them with its own model.
type ItemRecord struct {
	Input          any            `msgpack:"input"`
	ExpectedOutput any            `msgpack:"expected_output,omitempty"`
	Status         string         `msgpack:"status"`
	Metadata       map[string]any `msgpack:"metadata,omitempty"`
}

// Transfer exports and imports datasets.
type Transfer struct {
	datasets    ports.DatasetRepository
	items       ports.DatasetItemRepository
	txManager   ports.TransactionManager
	idGenerator ports.IDGenerator
}

func New(
	datasets ports.DatasetRepository,
	items ports.DatasetItemRepository,
	txManager ports.TransactionManager,
	idGenerator ports.IDGenerator,
) *Transfer {
	return &Transfer{
		datasets:    datasets,
		items:       items,
		txManager:   txManager,
		idGenerator: idGenerator,
	}
}

// Export writes a dataset and all of its items (archived included, so the
// import reproduces history) to w.
func (t *Transfer) Export(ctx context.Context, datasetName string, w io.Writer) error {
	dataset, err := t.datasets.GetByName(ctx, datasetName)
	if err != nil {
		return err
	}

	envelope := Envelope{
		Version:    FormatVersion,
		ExportedAt: time.Now().UTC(),
		Dataset: DatasetRecord{
			Name:           dataset.Name,
			Description:    dataset.Description,
			AgentReference: dataset.AgentReference,
			Metadata:       dataset.Metadata,
		},
	}

	offset := 0
	const page = 500
	for {
		items, err := t.items.ListByDataset(ctx, dataset.ID, page, offset)
		if err != nil {
			return err
		}
		for _, item := range items {
			envelope.Items = append(envelope.Items, ItemRecord{
				Input:          item.Input,
				ExpectedOutput: item.ExpectedOutput,
				Status:         string(item.Status),
				Metadata:       item.Metadata,
			})
		}
		if len(items) < page {
			break
		}
		offset += page
	}

	return msgpack.NewEncoder(w).Encode(&envelope)
}

// Import reads an archive and creates the dataset with fresh IDs. The
// dataset name must not already exist. The whole import is one transaction
// so a partial archive never leaves a half-imported dataset behind.
func (t *Transfer) Import(ctx context.Context, r io.Reader) (*models.Dataset, error) {
	var envelope Envelope
	if err := msgpack.NewDecoder(r).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding archive: %w", err)
	}
	if envelope.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported archive version %d (expected %d)", envelope.Version, FormatVersion)
	}
	if envelope.Dataset.Name == "" {
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "archive has no dataset name")
	}

	if existing, err := t.datasets.GetByName(ctx, envelope.Dataset.Name); err == nil && existing != nil {
		return nil, domain.NewDomainError(domain.ErrDatasetExists, "dataset "+envelope.Dataset.Name+" already exists")
	} else if err != nil && !errors.Is(err, domain.ErrDatasetNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	dataset := &models.Dataset{
		ID:             t.idGenerator.GenerateDatasetID(),
		Name:           envelope.Dataset.Name,
		Description:    envelope.Dataset.Description,
		AgentReference: envelope.Dataset.AgentReference,
		Metadata:       envelope.Dataset.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := t.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := t.datasets.Create(ctx, dataset); err != nil {
			return err
		}
		for _, record := range envelope.Items {
			status := models.ItemStatus(record.Status)
			if status != models.ItemStatusArchived {
				status = models.ItemStatusActive
			}
			item := &models.DatasetItem{
				ID:             t.idGenerator.GenerateDatasetItemID(),
				DatasetID:      dataset.ID,
				Input:          record.Input,
				ExpectedOutput: record.ExpectedOutput,
				Status:         status,
				Metadata:       record.Metadata,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := t.items.Create(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dataset, nil
}
