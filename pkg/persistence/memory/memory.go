package memory

import (
	"fmt"
	"sync"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/persistence"
)

// MemoryPersistence is an in-memory implementation of IBatchPersistence.
// This implementation is intended for TESTING ONLY.
//
// All data is stored in memory and will be lost when the process exits.
// Records are deep copied on the way in and out.
type MemoryPersistence struct {
	mu sync.RWMutex

	// batchID -> record
	batches map[string]*persistence.BatchRecord

	// txID -> set of batch ids covering it
	txIndex map[digest.SecureHash]map[string]struct{}

	closed bool
}

// NewMemoryPersistence creates a new in-memory persistence layer.
// Prints a loud warning since this should only be used for testing.
func NewMemoryPersistence() *MemoryPersistence {
	fmt.Println("⚠️  WARNING: Using in-memory persistence - ALL SIGNED BATCHES WILL BE LOST ON RESTART")
	fmt.Println("⚠️  Set TXPROOF_PERSISTENCE_TYPE=badger or redis to keep signatures across restarts")

	return &MemoryPersistence{
		batches: make(map[string]*persistence.BatchRecord),
		txIndex: make(map[digest.SecureHash]map[string]struct{}),
	}
}

// SaveBatch persists a batch record and indexes its transactions.
func (m *MemoryPersistence) SaveBatch(record *persistence.BatchRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil BatchRecord")
	}
	if err := record.Validate(); err != nil {
		return err
	}
	stored, err := persistence.CopyBatchRecord(record)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	if previous, ok := m.batches[record.BatchID]; ok {
		m.unindex(previous)
	}
	m.batches[record.BatchID] = stored
	for _, txID := range stored.TxIDs {
		ids, ok := m.txIndex[txID]
		if !ok {
			ids = make(map[string]struct{})
			m.txIndex[txID] = ids
		}
		ids[stored.BatchID] = struct{}{}
	}
	return nil
}

// LoadBatch retrieves a batch by id.
func (m *MemoryPersistence) LoadBatch(batchID string) (*persistence.BatchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	record, exists := m.batches[batchID]
	if !exists {
		return nil, nil // Not found is not an error
	}
	return persistence.CopyBatchRecord(record)
}

// LoadBatchForTransaction retrieves the latest batch covering txID.
func (m *MemoryPersistence) LoadBatchForTransaction(txID digest.SecureHash) (*persistence.BatchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	candidates := make([]*persistence.BatchRecord, 0, len(m.txIndex[txID]))
	for batchID := range m.txIndex[txID] {
		candidates = append(candidates, m.batches[batchID])
	}
	latest := persistence.Latest(candidates)
	if latest == nil {
		return nil, nil
	}
	return persistence.CopyBatchRecord(latest)
}

// ListBatches returns all batches sorted by CreatedAt.
func (m *MemoryPersistence) ListBatches() ([]*persistence.BatchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	result := make([]*persistence.BatchRecord, 0, len(m.batches))
	for _, record := range m.batches {
		copied, err := persistence.CopyBatchRecord(record)
		if err != nil {
			return nil, err
		}
		result = append(result, copied)
	}
	persistence.SortBatchRecords(result)
	return result, nil
}

// DeleteBatch removes a batch and its index entries.
func (m *MemoryPersistence) DeleteBatch(batchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	if record, ok := m.batches[batchID]; ok {
		m.unindex(record)
		delete(m.batches, batchID)
	}
	return nil
}

// unindex drops record's transaction index entries. Caller holds the write lock.
func (m *MemoryPersistence) unindex(record *persistence.BatchRecord) {
	for _, txID := range record.TxIDs {
		ids := m.txIndex[txID]
		delete(ids, record.BatchID)
		if len(ids) == 0 {
			delete(m.txIndex, txID)
		}
	}
}

// Close shuts down the persistence layer.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the persistence layer is operational.
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	return nil
}
