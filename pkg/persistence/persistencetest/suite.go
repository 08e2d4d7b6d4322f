// Package persistencetest holds behaviour tests shared by every
// IBatchPersistence backend.
package persistencetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/logger"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/persistence"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/signature"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/signer/inMemorySigner"
)

// NewBatchRecord signs a batch of n fresh transaction ids.
func NewBatchRecord(t *testing.T, n int, createdAt time.Time) *persistence.BatchRecord {
	t.Helper()
	ds := digest.NewSHA256()
	ids := make([]digest.SecureHash, n)
	for i := range ids {
		ids[i] = ds.RandomHash()
	}
	return NewBatchRecordForIDs(t, ids, createdAt)
}

func NewBatchRecordForIDs(t *testing.T, ids []digest.SecureHash, createdAt time.Time) *persistence.BatchRecord {
	t.Helper()
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)
	s, err := inMemorySigner.GenerateInMemorySigner(crypto.ECDSA_SECP256K1_KECCAK256, l)
	require.NoError(t, err)

	batch, err := signature.SignBatch(context.Background(), digest.NewSHA256(), ids, s, signature.SignatureMetadata{PlatformVersion: 1})
	require.NoError(t, err)

	return &persistence.BatchRecord{
		BatchID:   uuid.New().String(),
		Root:      batch.Root(),
		TxIDs:     batch.TxIDs(),
		Signature: batch.Signature,
		CreatedAt: createdAt.UTC(),
	}
}

// AssertRecordEqual compares records field by field; times compare by instant.
func AssertRecordEqual(t *testing.T, expected, actual *persistence.BatchRecord) {
	t.Helper()
	require.NotNil(t, actual)
	assert.Equal(t, expected.BatchID, actual.BatchID)
	assert.Equal(t, expected.Root, actual.Root)
	assert.Equal(t, expected.TxIDs, actual.TxIDs)
	assert.True(t, expected.CreatedAt.Equal(actual.CreatedAt))
	require.NotNil(t, actual.Signature)
	assert.Equal(t, expected.Signature.Bytes(), actual.Signature.Bytes())
	assert.True(t, expected.Signature.By().Equal(actual.Signature.By()))
	assert.Equal(t, expected.Signature.Metadata(), actual.Signature.Metadata())
}

// RunBatchPersistenceSuite runs the shared behaviour tests. newStore must
// return an empty, open store.
func RunBatchPersistenceSuite(t *testing.T, newStore func(t *testing.T) persistence.IBatchPersistence) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("SaveAndLoad", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		record := NewBatchRecord(t, 5, base)
		require.NoError(t, store.SaveBatch(record))

		loaded, err := store.LoadBatch(record.BatchID)
		require.NoError(t, err)
		AssertRecordEqual(t, record, loaded)

		// The loaded signature still proves every transaction.
		restored, err := signature.RestoreBatchSignature(digest.NewSHA256(), loaded.TxIDs, loaded.Signature)
		require.NoError(t, err)
		for _, id := range loaded.TxIDs {
			sig, err := restored.ForParticipant(id)
			require.NoError(t, err)
			require.NoError(t, signature.Verify(id, sig))
		}
	})

	t.Run("LoadMissing", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		loaded, err := store.LoadBatch("missing")
		require.NoError(t, err)
		assert.Nil(t, loaded)

		loaded, err = store.LoadBatchForTransaction(digest.NewSHA256().HashString("missing"))
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("SaveInvalid", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		require.Error(t, store.SaveBatch(nil))
		require.Error(t, store.SaveBatch(&persistence.BatchRecord{}))
	})

	t.Run("LoadBatchForTransaction", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		first := NewBatchRecord(t, 3, base)
		second := NewBatchRecord(t, 4, base.Add(time.Second))
		require.NoError(t, store.SaveBatch(first))
		require.NoError(t, store.SaveBatch(second))

		for _, id := range first.TxIDs {
			loaded, err := store.LoadBatchForTransaction(id)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, first.BatchID, loaded.BatchID)
		}
		for _, id := range second.TxIDs {
			loaded, err := store.LoadBatchForTransaction(id)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, second.BatchID, loaded.BatchID)
		}
	})

	t.Run("TransactionInSeveralBatches", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		shared := digest.NewSHA256().RandomHash()
		older := NewBatchRecordForIDs(t, []digest.SecureHash{shared, digest.NewSHA256().RandomHash()}, base)
		newer := NewBatchRecordForIDs(t, []digest.SecureHash{digest.NewSHA256().RandomHash(), shared}, base.Add(time.Minute))
		require.NoError(t, store.SaveBatch(older))
		require.NoError(t, store.SaveBatch(newer))

		loaded, err := store.LoadBatchForTransaction(shared)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, newer.BatchID, loaded.BatchID)

		// Deleting the newer batch falls back to the older one.
		require.NoError(t, store.DeleteBatch(newer.BatchID))
		loaded, err = store.LoadBatchForTransaction(shared)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, older.BatchID, loaded.BatchID)

		require.NoError(t, store.DeleteBatch(older.BatchID))
		loaded, err = store.LoadBatchForTransaction(shared)
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("ListSorted", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		empty, err := store.ListBatches()
		require.NoError(t, err)
		assert.Empty(t, empty)

		offsets := []int{3, 1, 4, 0, 2}
		for _, offset := range offsets {
			require.NoError(t, store.SaveBatch(NewBatchRecord(t, 2, base.Add(time.Duration(offset)*time.Hour))))
		}

		records, err := store.ListBatches()
		require.NoError(t, err)
		require.Len(t, records, len(offsets))
		for i := 1; i < len(records); i++ {
			assert.True(t, records[i-1].CreatedAt.Before(records[i].CreatedAt))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		record := NewBatchRecord(t, 3, base)
		require.NoError(t, store.SaveBatch(record))
		require.NoError(t, store.DeleteBatch(record.BatchID))

		loaded, err := store.LoadBatch(record.BatchID)
		require.NoError(t, err)
		assert.Nil(t, loaded)

		loaded, err = store.LoadBatchForTransaction(record.TxIDs[0])
		require.NoError(t, err)
		assert.Nil(t, loaded)

		records, err := store.ListBatches()
		require.NoError(t, err)
		assert.Empty(t, records)

		// Idempotent.
		require.NoError(t, store.DeleteBatch(record.BatchID))
		require.NoError(t, store.DeleteBatch("never-saved"))
	})

	t.Run("Overwrite", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		record := NewBatchRecord(t, 2, base)
		require.NoError(t, store.SaveBatch(record))

		replacement := NewBatchRecord(t, 3, base.Add(time.Hour))
		replacement.BatchID = record.BatchID
		require.NoError(t, store.SaveBatch(replacement))

		loaded, err := store.LoadBatch(record.BatchID)
		require.NoError(t, err)
		AssertRecordEqual(t, replacement, loaded)

		records, err := store.ListBatches()
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		const workers = 8
		records := make([]*persistence.BatchRecord, workers)
		for i := range records {
			records[i] = NewBatchRecord(t, 2, base.Add(time.Duration(i)*time.Second))
		}

		var wg sync.WaitGroup
		errs := make(chan error, workers*2)
		for _, record := range records {
			wg.Add(1)
			go func(r *persistence.BatchRecord) {
				defer wg.Done()
				if err := store.SaveBatch(r); err != nil {
					errs <- err
					return
				}
				loaded, err := store.LoadBatchForTransaction(r.TxIDs[1])
				if err != nil {
					errs <- err
					return
				}
				if loaded == nil || loaded.BatchID != r.BatchID {
					errs <- fmt.Errorf("transaction %s resolved to the wrong batch", r.TxIDs[1])
				}
			}(record)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		all, err := store.ListBatches()
		require.NoError(t, err)
		assert.Len(t, all, workers)
	})

	t.Run("Closed", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.HealthCheck())
		require.NoError(t, store.Close())
		require.NoError(t, store.Close(), "close must be idempotent")

		record := NewBatchRecord(t, 1, base)
		assert.Error(t, store.SaveBatch(record))
		_, err := store.LoadBatch(record.BatchID)
		assert.Error(t, err)
		_, err = store.LoadBatchForTransaction(record.TxIDs[0])
		assert.Error(t, err)
		_, err = store.ListBatches()
		assert.Error(t, err)
		assert.Error(t, store.DeleteBatch(record.BatchID))
		assert.Error(t, store.HealthCheck())
	})
}
