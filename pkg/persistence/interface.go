package persistence

import "github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"

// IBatchPersistence stores the batches a notary has signed so per-transaction
// signatures can be handed out again after a restart.
// All implementations must be thread-safe.
type IBatchPersistence interface {
	// SaveBatch persists a batch record keyed by BatchID and indexes each of
	// its transaction ids. Saving the same BatchID again overwrites it.
	SaveBatch(record *BatchRecord) error

	// LoadBatch retrieves a batch by id.
	// Returns nil if the batch doesn't exist, error only on storage failure.
	LoadBatch(batchID string) (*BatchRecord, error)

	// LoadBatchForTransaction retrieves the batch that covers txID. If txID was
	// notarised in several batches, the latest by CreatedAt is returned.
	// Returns nil if no batch covers txID.
	LoadBatchForTransaction(txID digest.SecureHash) (*BatchRecord, error)

	// ListBatches returns all batches sorted by CreatedAt (ascending).
	// Returns empty slice if no batches exist.
	ListBatches() ([]*BatchRecord, error)

	// DeleteBatch removes a batch and its transaction index entries.
	// Idempotent - returns nil if the batch doesn't exist.
	DeleteBatch(batchID string) error

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations return errors.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	HealthCheck() error
}
