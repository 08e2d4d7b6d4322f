package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/persistence"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/persistence/persistencetest"
)

var _ persistence.IBatchPersistence = (*MemoryPersistence)(nil)

func TestMemoryPersistence_Suite(t *testing.T) {
	persistencetest.RunBatchPersistenceSuite(t, func(t *testing.T) persistence.IBatchPersistence {
		return NewMemoryPersistence()
	})
}

func TestMemoryPersistence_MutationIsolation(t *testing.T) {
	mp := NewMemoryPersistence()
	defer func() { _ = mp.Close() }()

	record := persistencetest.NewBatchRecord(t, 3, time.Now())
	originalFirst := record.TxIDs[0]
	require.NoError(t, mp.SaveBatch(record))

	// Mutating the caller's record after save doesn't reach the store.
	record.TxIDs[0] = record.TxIDs[1]
	loaded, err := mp.LoadBatch(record.BatchID)
	require.NoError(t, err)
	assert.Equal(t, originalFirst, loaded.TxIDs[0])

	// Mutating a loaded record doesn't reach the store either.
	loaded.TxIDs[0] = loaded.TxIDs[2]
	again, err := mp.LoadBatch(record.BatchID)
	require.NoError(t, err)
	assert.Equal(t, originalFirst, again.TxIDs[0])
}

func TestMemoryPersistence_OverwriteDropsStaleIndex(t *testing.T) {
	mp := NewMemoryPersistence()
	defer func() { _ = mp.Close() }()

	record := persistencetest.NewBatchRecord(t, 2, time.Now())
	require.NoError(t, mp.SaveBatch(record))

	replacement := persistencetest.NewBatchRecord(t, 2, time.Now())
	replacement.BatchID = record.BatchID
	require.NoError(t, mp.SaveBatch(replacement))

	loaded, err := mp.LoadBatchForTransaction(record.TxIDs[0])
	require.NoError(t, err)
	assert.Nil(t, loaded)
	assert.Len(t, mp.txIndex, 2)
}
