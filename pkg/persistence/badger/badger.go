package badger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/persistence"
)

// Key layout:
//
//	batch:<batchID>                 -> BatchRecord JSON
//	txindex:<txID>:<batchID>        -> empty
//	metadata:schema_version         -> currentSchemaVersion
const (
	keyPrefixBatch       = "batch:"
	keyPrefixTxIndex     = "txindex:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "txproof-v1"

	gcInterval     = 5 * time.Minute
	gcDiscardRatio = 0.5
)

// BadgerPersistence stores signed batches in an embedded Badger database.
type BadgerPersistence struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

// NewBadgerPersistence opens (or creates) the database at dataPath with
// SyncWrites enabled and starts a background value-log GC loop.
func NewBadgerPersistence(dataPath string, logger *zap.Logger) (*BadgerPersistence, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = newZapBadgerLogger(logger)
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bp := &BadgerPersistence{
		db:     db,
		logger: logger,
	}

	if err := bp.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bp.gcCancel = cancel
	bp.gcWg.Add(1)
	go bp.runGC(ctx)

	logger.Sugar().Infow("Badger batch store initialized", "path", absPath)

	return bp, nil
}

func (b *BadgerPersistence) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		existing, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}
		if string(existing) != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existing, currentSchemaVersion)
		}
		return nil
	})
}

func (b *BadgerPersistence) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(gcDiscardRatio)
			if err != nil && !errors.Is(err, badgerdb.ErrNoRewrite) {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func batchKey(batchID string) []byte {
	return []byte(keyPrefixBatch + batchID)
}

func txIndexPrefix(txID digest.SecureHash) []byte {
	return []byte(keyPrefixTxIndex + txID.String() + ":")
}

func txIndexKey(txID digest.SecureHash, batchID string) []byte {
	return append(txIndexPrefix(txID), batchID...)
}

// SaveBatch writes the record and its transaction index in one transaction.
func (b *BadgerPersistence) SaveBatch(record *persistence.BatchRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil BatchRecord")
	}
	if err := record.Validate(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	data, err := persistence.MarshalBatchRecord(record)
	if err != nil {
		return fmt.Errorf("failed to marshal BatchRecord: %w", err)
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		previous, err := getBatch(txn, record.BatchID)
		if err != nil {
			return err
		}
		if previous != nil {
			if err := deleteIndex(txn, previous); err != nil {
				return err
			}
		}
		if err := txn.Set(batchKey(record.BatchID), data); err != nil {
			return err
		}
		for _, txID := range record.TxIDs {
			if err := txn.Set(txIndexKey(txID, record.BatchID), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadBatch retrieves a batch by id.
func (b *BadgerPersistence) LoadBatch(batchID string) (*persistence.BatchRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	var record *persistence.BatchRecord
	err := b.db.View(func(txn *badgerdb.Txn) error {
		var err error
		record, err = getBatch(txn, batchID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}
	return record, nil
}

// LoadBatchForTransaction scans the index entries for txID and returns the
// latest covering batch.
func (b *BadgerPersistence) LoadBatchForTransaction(txID digest.SecureHash) (*persistence.BatchRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	var candidates []*persistence.BatchRecord
	err := b.db.View(func(txn *badgerdb.Txn) error {
		prefix := txIndexPrefix(txID)
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		var batchIDs []string
		for it.Rewind(); it.Valid(); it.Next() {
			batchIDs = append(batchIDs, strings.TrimPrefix(string(it.Item().Key()), string(prefix)))
		}

		for _, batchID := range batchIDs {
			record, err := getBatch(txn, batchID)
			if err != nil {
				return err
			}
			if record == nil {
				b.logger.Sugar().Warnw("Dangling transaction index entry", "txId", txID.String(), "batchId", batchID)
				continue
			}
			candidates = append(candidates, record)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load batch for transaction %s: %w", txID, err)
	}

	return persistence.Latest(candidates), nil
}

// ListBatches returns all batches sorted by CreatedAt. Undecodable entries
// are logged and skipped.
func (b *BadgerPersistence) ListBatches() ([]*persistence.BatchRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	records := make([]*persistence.BatchRecord, 0)
	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixBatch)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			data, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("failed to read value: %w", err)
			}

			record, err := persistence.UnmarshalBatchRecord(data)
			if err != nil {
				b.logger.Sugar().Warnw("Failed to unmarshal BatchRecord, skipping",
					"key", string(item.Key()), "error", err)
				continue
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	persistence.SortBatchRecords(records)
	return records, nil
}

// DeleteBatch removes a batch and its index entries.
func (b *BadgerPersistence) DeleteBatch(batchID string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		record, err := getBatch(txn, batchID)
		if err != nil || record == nil {
			return err
		}
		if err := deleteIndex(txn, record); err != nil {
			return err
		}
		return txn.Delete(batchKey(batchID))
	})
}

// getBatch returns nil, nil when the batch does not exist.
func getBatch(txn *badgerdb.Txn, batchID string) (*persistence.BatchRecord, error) {
	item, err := txn.Get(batchKey(batchID))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return persistence.UnmarshalBatchRecord(data)
}

func deleteIndex(txn *badgerdb.Txn, record *persistence.BatchRecord) error {
	for _, txID := range record.TxIDs {
		if err := txn.Delete(txIndexKey(txID, record.BatchID)); err != nil {
			return err
		}
	}
	return nil
}

// Close stops GC and closes the database. Idempotent.
func (b *BadgerPersistence) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	b.logger.Sugar().Info("Badger batch store closed")
	return nil
}

// HealthCheck reads the schema key.
func (b *BadgerPersistence) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("schema version not found - database may be corrupted")
		}
		return err
	})
}
