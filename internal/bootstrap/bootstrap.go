// Package bootstrap builds signers, batch stores and notaries from a
// TxProofConfig.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/config"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/notary"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/persistence"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/persistence/badger"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/persistence/memory"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/persistence/redis"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/signature"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/signer"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/signer/awsKmsSigner"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/signer/inMemorySigner"
)

func NewSigner(ctx context.Context, cfg *config.TxProofConfig, l *zap.Logger) (signer.ISigner, error) {
	scheme, err := cfg.Scheme()
	if err != nil {
		return nil, err
	}

	switch cfg.Signer.Type {
	case config.SignerTypeInMemory:
		if cfg.Signer.PrivateKey == "" {
			s, err := inMemorySigner.GenerateInMemorySigner(scheme, l)
			if err != nil {
				return nil, err
			}
			l.Sugar().Warnw("No private key configured, using an ephemeral signing key",
				"scheme", scheme.String(), "public_key", s.Public().String())
			return s, nil
		}
		return inMemorySigner.NewInMemorySignerFromHex(scheme, cfg.Signer.PrivateKey, l)
	case config.SignerTypeAWSKMS:
		return awsKmsSigner.NewAWSKMSSignerFromRegion(ctx, cfg.Signer.AWSRegion, cfg.Signer.AWSKMSKeyID, l)
	default:
		return nil, fmt.Errorf("unsupported signer type: %s", cfg.Signer.Type)
	}
}

func NewPersistence(cfg *config.TxProofConfig, l *zap.Logger) (persistence.IBatchPersistence, error) {
	switch cfg.Persistence.Type {
	case config.PersistenceTypeMemory:
		return memory.NewMemoryPersistence(), nil
	case config.PersistenceTypeBadger:
		return badger.NewBadgerPersistence(cfg.Persistence.BadgerPath, l)
	case config.PersistenceTypeRedis:
		return redis.NewRedisPersistence(&redis.RedisConfig{
			Address:   cfg.Persistence.Redis.Address,
			Password:  cfg.Persistence.Redis.Password,
			DB:        cfg.Persistence.Redis.DB,
			KeyPrefix: cfg.Persistence.Redis.KeyPrefix,
		}, l)
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s", cfg.Persistence.Type)
	}
}

func NotaryConfig(cfg *config.TxProofConfig, s signer.ISigner) notary.Config {
	return notary.Config{
		MaxBatchSize: cfg.Batching.MaxBatchSize,
		BatchTimeout: cfg.Batching.BatchTimeout,
		SigningRate:  cfg.Batching.SigningRate,
		SigningBurst: 1,
		Metadata: signature.SignatureMetadata{
			PlatformVersion: cfg.PlatformVersion,
			SchemeNumberID:  s.Scheme().ID(),
		},
	}
}

// NewNotary validates cfg and wires a notary. The caller owns the returned
// store and must Close it after stopping the notary.
func NewNotary(ctx context.Context, cfg *config.TxProofConfig, l *zap.Logger) (*notary.Notary, persistence.IBatchPersistence, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ds, err := cfg.DigestService()
	if err != nil {
		return nil, nil, err
	}

	s, err := NewSigner(ctx, cfg, l)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create signer: %w", err)
	}

	store, err := NewPersistence(cfg, l)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create batch store: %w", err)
	}

	n, err := notary.NewNotary(NotaryConfig(cfg, s), ds, s, store, l)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return n, store, nil
}
