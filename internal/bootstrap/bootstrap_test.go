package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/config"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/logger"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/persistence/badger"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/signature"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/signer/inMemorySigner"
)

func TestNewSigner_InMemory(t *testing.T) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)

	cfg := config.NewDefaultTxProofConfig()
	cfg.SignatureScheme = "p256"

	ephemeral, err := NewSigner(context.Background(), cfg, l)
	require.NoError(t, err)
	assert.Equal(t, crypto.ECDSA_SECP256R1_SHA256, ephemeral.Scheme())

	keyHex, err := inMemorySigner.GeneratePrivateKeyHex(crypto.ECDSA_SECP256R1_SHA256)
	require.NoError(t, err)
	cfg.Signer.PrivateKey = keyHex

	first, err := NewSigner(context.Background(), cfg, l)
	require.NoError(t, err)
	second, err := NewSigner(context.Background(), cfg, l)
	require.NoError(t, err)
	assert.True(t, first.Public().Equal(second.Public()))
}

func TestNewPersistence(t *testing.T) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)

	cfg := config.NewDefaultTxProofConfig()
	cfg.Persistence.Type = config.PersistenceTypeBadger
	cfg.Persistence.BadgerPath = t.TempDir()

	store, err := NewPersistence(cfg, l)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	_, ok := store.(*badger.BadgerPersistence)
	assert.True(t, ok)
	require.NoError(t, store.HealthCheck())

	cfg.Persistence.Type = "sqlite"
	_, err = NewPersistence(cfg, l)
	require.Error(t, err)
}

func TestNewNotary_EndToEnd(t *testing.T) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)

	cfg := config.NewDefaultTxProofConfig()
	cfg.DigestAlgorithm = string(digest.SHA3_256)
	cfg.SignatureScheme = "ed25519"
	cfg.PlatformVersion = 7
	cfg.Batching.BatchTimeout = 10 * time.Millisecond

	n, store, err := NewNotary(context.Background(), cfg, l)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, n.Start(context.Background()))
	defer n.Stop()

	txID := digest.MustDigestService(digest.SHA3_256).HashString("tx")
	sig, err := n.Notarise(context.Background(), txID)
	require.NoError(t, err)
	require.NoError(t, signature.Verify(txID, sig))
	assert.Equal(t, 7, sig.Metadata().PlatformVersion)
	assert.Equal(t, crypto.EDDSA_ED25519_SHA512.ID(), sig.Metadata().SchemeNumberID)
	assert.Equal(t, digest.SHA3_256, sig.PartialMerkleTree().Hash().Algorithm())
}

func TestNewNotary_InvalidConfig(t *testing.T) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)

	cfg := config.NewDefaultTxProofConfig()
	cfg.Batching.MaxBatchSize = 0
	_, _, err = NewNotary(context.Background(), cfg, l)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
