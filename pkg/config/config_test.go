package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultTxProofConfig()
	require.NoError(t, cfg.Validate())

	scheme, err := cfg.Scheme()
	require.NoError(t, err)
	assert.Equal(t, crypto.DefaultSignatureScheme, scheme)

	ds, err := cfg.DigestService()
	require.NoError(t, err)
	assert.Equal(t, digest.DefaultAlgorithm, ds.Algorithm())
}

func TestTxProofConfig_Validate(t *testing.T) {
	testCases := []struct {
		name        string
		mutate      func(c *TxProofConfig)
		errContains []string
	}{
		{
			name:        "unknown digest",
			mutate:      func(c *TxProofConfig) { c.DigestAlgorithm = "MD5" },
			errContains: []string{"digestAlgorithm"},
		},
		{
			name:        "unknown scheme",
			mutate:      func(c *TxProofConfig) { c.SignatureScheme = "RSA" },
			errContains: []string{"signatureScheme"},
		},
		{
			name:        "negative platform version",
			mutate:      func(c *TxProofConfig) { c.PlatformVersion = -1 },
			errContains: []string{"platformVersion"},
		},
		{
			name: "kms without key id",
			mutate: func(c *TxProofConfig) {
				c.Signer.Type = SignerTypeAWSKMS
			},
			errContains: []string{"signer.awsKmsKeyId"},
		},
		{
			name: "kms with non secp256k1 scheme",
			mutate: func(c *TxProofConfig) {
				c.Signer.Type = SignerTypeAWSKMS
				c.Signer.AWSKMSKeyID = "alias/txproof"
				c.SignatureScheme = "ed25519"
			},
			errContains: []string{"signer.type"},
		},
		{
			name: "kms with private key",
			mutate: func(c *TxProofConfig) {
				c.Signer.Type = SignerTypeAWSKMS
				c.Signer.AWSKMSKeyID = "alias/txproof"
				c.Signer.PrivateKey = "0x01"
			},
			errContains: []string{"signer.privateKey"},
		},
		{
			name:        "unknown signer",
			mutate:      func(c *TxProofConfig) { c.Signer.Type = "hsm" },
			errContains: []string{"signer.type"},
		},
		{
			name: "badger without path",
			mutate: func(c *TxProofConfig) {
				c.Persistence.Type = PersistenceTypeBadger
				c.Persistence.BadgerPath = ""
			},
			errContains: []string{"persistence.badgerPath"},
		},
		{
			name: "redis without address and bad db",
			mutate: func(c *TxProofConfig) {
				c.Persistence.Type = PersistenceTypeRedis
				c.Persistence.Redis.DB = 16
			},
			errContains: []string{"persistence.redis.address", "persistence.redis.db"},
		},
		{
			name: "bad batching",
			mutate: func(c *TxProofConfig) {
				c.Batching = BatchingConfig{MaxBatchSize: 0, BatchTimeout: 0, SigningRate: -1}
			},
			errContains: []string{"batching.maxBatchSize", "batching.batchTimeout", "batching.signingRate"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultTxProofConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			for _, s := range tc.errContains {
				assert.Contains(t, err.Error(), s)
			}
		})
	}
}

func TestTxProofConfig_ValidVariants(t *testing.T) {
	kms := NewDefaultTxProofConfig()
	kms.Signer = SignerConfig{Type: SignerTypeAWSKMS, AWSKMSKeyID: "alias/txproof", AWSRegion: "us-east-1"}
	require.NoError(t, kms.Validate())

	redis := NewDefaultTxProofConfig()
	redis.Persistence = PersistenceConfig{Type: PersistenceTypeRedis, Redis: RedisSettings{Address: "localhost:6379", DB: 3}}
	redis.Batching.SigningRate = 10
	redis.Batching.BatchTimeout = time.Second
	require.NoError(t, redis.Validate())
}

func TestParseEnums(t *testing.T) {
	signerType, err := ParseSignerType("AWSKMS")
	require.NoError(t, err)
	assert.Equal(t, SignerTypeAWSKMS, signerType)

	_, err = ParseSignerType("vault")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inMemory, awsKms")

	persistenceType, err := ParsePersistenceType("Badger")
	require.NoError(t, err)
	assert.Equal(t, PersistenceTypeBadger, persistenceType)

	_, err = ParsePersistenceType("sqlite")
	require.Error(t, err)
}
