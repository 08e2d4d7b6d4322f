package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/persistence"
)

// Key layout, all under the configured prefix:
//
//	batch:<batchID>          -> BatchRecord JSON
//	batches:index            -> set of batch ids
//	tx:<txID>                -> set of batch ids covering txID
//	metadata:schema_version  -> currentSchemaVersion
const (
	DefaultKeyPrefix = "txproof:"

	keyPrefixBatch       = "batch:"
	keyPrefixTx          = "tx:"
	keySetBatches        = "batches:index"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"

	operationTimeout = 5 * time.Second
)

// RedisPersistence stores signed batches in Redis so several notaries can
// share one store.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix namespaces every key. Defaults to DefaultKeyPrefix.
	KeyPrefix string
}

// NewRedisPersistence connects, pings and checks the schema version.
func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: keyPrefix,
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis batch store initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", keyPrefix)

	return rp, nil
}

func (r *RedisPersistence) key(parts ...string) string {
	k := r.keyPrefix
	for _, p := range parts {
		k += p
	}
	return k
}

func (r *RedisPersistence) batchKey(batchID string) string {
	return r.key(keyPrefixBatch, batchID)
}

func (r *RedisPersistence) txKey(txID digest.SecureHash) string {
	return r.key(keyPrefixTx, txID.String())
}

func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.key(keySchemaVersion)

	existing, err := r.client.Get(ctx, schemaKey).Result()
	if errors.Is(err, redis.Nil) {
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if existing != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existing, currentSchemaVersion)
	}
	return nil
}

// SaveBatch writes the record and its index entries in one MULTI/EXEC.
func (r *RedisPersistence) SaveBatch(record *persistence.BatchRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil BatchRecord")
	}
	if err := record.Validate(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	data, err := persistence.MarshalBatchRecord(record)
	if err != nil {
		return fmt.Errorf("failed to marshal BatchRecord: %w", err)
	}

	previous, err := r.getBatch(ctx, record.BatchID)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previous != nil {
			for _, txID := range previous.TxIDs {
				pipe.SRem(ctx, r.txKey(txID), record.BatchID)
			}
		}
		pipe.Set(ctx, r.batchKey(record.BatchID), data, 0)
		pipe.SAdd(ctx, r.key(keySetBatches), record.BatchID)
		for _, txID := range record.TxIDs {
			pipe.SAdd(ctx, r.txKey(txID), record.BatchID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save batch %s: %w", record.BatchID, err)
	}
	return nil
}

// LoadBatch retrieves a batch by id.
func (r *RedisPersistence) LoadBatch(batchID string) (*persistence.BatchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	return r.getBatch(ctx, batchID)
}

// LoadBatchForTransaction reads the tx index set and returns the latest
// covering batch.
func (r *RedisPersistence) LoadBatchForTransaction(txID digest.SecureHash) (*persistence.BatchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	batchIDs, err := r.client.SMembers(ctx, r.txKey(txID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction index: %w", err)
	}

	records, err := r.getBatches(ctx, batchIDs)
	if err != nil {
		return nil, err
	}
	return persistence.Latest(records), nil
}

// ListBatches returns all batches sorted by CreatedAt.
func (r *RedisPersistence) ListBatches() ([]*persistence.BatchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	batchIDs, err := r.client.SMembers(ctx, r.key(keySetBatches)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read batch index: %w", err)
	}

	records, err := r.getBatches(ctx, batchIDs)
	if err != nil {
		return nil, err
	}
	persistence.SortBatchRecords(records)
	return records, nil
}

// DeleteBatch removes a batch and its index entries.
func (r *RedisPersistence) DeleteBatch(batchID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	record, err := r.getBatch(ctx, batchID)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if record != nil {
			for _, txID := range record.TxIDs {
				pipe.SRem(ctx, r.txKey(txID), batchID)
			}
		}
		pipe.Del(ctx, r.batchKey(batchID))
		pipe.SRem(ctx, r.key(keySetBatches), batchID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete batch %s: %w", batchID, err)
	}
	return nil
}

// getBatch returns nil, nil when the batch does not exist.
func (r *RedisPersistence) getBatch(ctx context.Context, batchID string) (*persistence.BatchRecord, error) {
	data, err := r.client.Get(ctx, r.batchKey(batchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}

	record, err := persistence.UnmarshalBatchRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch %s: %w", batchID, err)
	}
	return record, nil
}

// getBatches fetches records with one pipelined round trip. Missing or
// undecodable entries are logged and skipped.
func (r *RedisPersistence) getBatches(ctx context.Context, batchIDs []string) ([]*persistence.BatchRecord, error) {
	records := make([]*persistence.BatchRecord, 0, len(batchIDs))
	if len(batchIDs) == 0 {
		return records, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(batchIDs))
	for i, batchID := range batchIDs {
		cmds[i] = pipe.Get(ctx, r.batchKey(batchID))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to fetch batches: %w", err)
	}

	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			r.logger.Sugar().Warnw("Batch referenced by index is missing", "batchId", batchIDs[i])
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch batch %s: %w", batchIDs[i], err)
		}

		record, err := persistence.UnmarshalBatchRecord(data)
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal BatchRecord, skipping", "batchId", batchIDs[i], "error", err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// Close shuts down the client. Idempotent.
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis batch store closed")
	return nil
}

// HealthCheck pings Redis and checks the schema key.
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	_, err := r.client.Get(ctx, r.key(keySchemaVersion)).Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	if err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}
	return nil
}
