package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/logger"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/persistence"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/persistence/persistencetest"
)

var _ persistence.IBatchPersistence = (*RedisPersistence)(nil)

// getTestRedisAddress uses REDIS_TEST_ADDRESS if set, otherwise localhost:6379.
func getTestRedisAddress() string {
	if addr := os.Getenv("REDIS_TEST_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

func testConfig() *RedisConfig {
	return &RedisConfig{
		Address: getTestRedisAddress(),
		DB:      15, // dedicated to tests
		// Unique prefix so every test starts with an empty store.
		KeyPrefix: "txproof-test:" + uuid.New().String() + ":",
	}
}

// requireRedis skips the test when Redis is not reachable.
func requireRedis(t *testing.T, cfg *RedisConfig) *RedisPersistence {
	t.Helper()

	testLogger, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)

	rp, err := NewRedisPersistence(cfg, testLogger)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", cfg.Address, err)
	}

	t.Cleanup(func() { cleanupRedis(t, cfg) })
	return rp
}

// cleanupRedis removes every key under the test prefix.
func cleanupRedis(t *testing.T, cfg *RedisConfig) {
	t.Helper()
	client := goredis.NewClient(&goredis.Options{Addr: cfg.Address, DB: cfg.DB})
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	iter := client.Scan(ctx, 0, cfg.KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		_ = client.Del(ctx, iter.Val()).Err()
	}
}

func TestRedisPersistence_Suite(t *testing.T) {
	persistencetest.RunBatchPersistenceSuite(t, func(t *testing.T) persistence.IBatchPersistence {
		return requireRedis(t, testConfig())
	})
}

func TestRedisPersistence_SharedAcrossClients(t *testing.T) {
	cfg := testConfig()
	writer := requireRedis(t, cfg)
	defer func() { _ = writer.Close() }()

	record := persistencetest.NewBatchRecord(t, 3, time.Now())
	require.NoError(t, writer.SaveBatch(record))

	reader := requireRedis(t, cfg)
	defer func() { _ = reader.Close() }()

	loaded, err := reader.LoadBatchForTransaction(record.TxIDs[2])
	require.NoError(t, err)
	persistencetest.AssertRecordEqual(t, record, loaded)
}

func TestRedisPersistence_SchemaMismatch(t *testing.T) {
	cfg := testConfig()
	rp := requireRedis(t, cfg)
	require.NoError(t, rp.client.Set(context.Background(), rp.key(keySchemaVersion), "v0", 0).Err())
	require.NoError(t, rp.Close())

	testLogger, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)
	_, err = NewRedisPersistence(cfg, testLogger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema version")
}

func TestNewRedisPersistence_InvalidConfig(t *testing.T) {
	testLogger, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)

	_, err = NewRedisPersistence(nil, testLogger)
	require.Error(t, err)

	_, err = NewRedisPersistence(&RedisConfig{}, testLogger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address cannot be empty")
}

func TestRedisPersistence_KeyLayout(t *testing.T) {
	rp := &RedisPersistence{keyPrefix: DefaultKeyPrefix}
	assert.Equal(t, "txproof:batch:abc", rp.batchKey("abc"))
	assert.Equal(t, "txproof:batches:index", rp.key(keySetBatches))
}
