package awsKmsSigner

import (
	"context"
	stdecdsa "crypto/ecdsa"
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	awsutil "github.com/Layr-Labs/eigenx-txproof-go/internal/aws"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/crypto"
)

// secp256k1 curve order, for low-S normalisation
var (
	curveOrder, _ = new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141", 16)
	halfOrder     = new(big.Int).Rsh(curveOrder, 1)
)

// KMSClient is the subset of the KMS API the signer calls.
type KMSClient interface {
	GetPublicKey(ctx context.Context, params *kms.GetPublicKeyInput, optFns ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error)
	Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error)
}

// AWSKMSSigner signs with a secp256k1 key that never leaves AWS KMS.
type AWSKMSSigner struct {
	logger    *zap.Logger
	kmsClient KMSClient
	keyId     string
	publicKey *stdecdsa.PublicKey
	public    crypto.PublicKey
}

// NewAWSKMSSignerFromRegion loads the AWS config and connects to KMS in awsRegion.
func NewAWSKMSSignerFromRegion(ctx context.Context, awsRegion string, keyId string, logger *zap.Logger) (*AWSKMSSigner, error) {
	awsCfg, err := awsutil.LoadAWSConfig(ctx, awsRegion)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load AWS config for region %s", awsRegion)
	}
	if arn, err := awsutil.CallerARN(ctx, awsCfg); err != nil {
		logger.Sugar().Warnw("Failed to resolve AWS caller identity", "error", err)
	} else {
		logger.Sugar().Debugw("Resolved AWS caller identity", "arn", arn)
	}
	return NewAWSKMSSigner(ctx, kms.NewFromConfig(awsCfg), keyId, logger)
}

// NewAWSKMSSigner fetches the public key of keyId once and keeps it for
// recovery id selection.
func NewAWSKMSSigner(ctx context.Context, client KMSClient, keyId string, logger *zap.Logger) (*AWSKMSSigner, error) {
	if keyId == "" {
		return nil, fmt.Errorf("KMS key id is required")
	}
	s := &AWSKMSSigner{
		logger:    logger,
		kmsClient: client,
		keyId:     keyId,
	}

	kmsPubKey, err := s.getPublicKey(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get public key for key %s", keyId)
	}
	pub, err := parseECDSAPublicKey(kmsPubKey.PublicKey)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse public key for key %s", keyId)
	}
	s.publicKey = pub
	s.public = crypto.EncodeSecp256k1PublicKey(pub)

	addr, err := s.public.Address()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to derive Ethereum address for key %s", keyId)
	}
	logger.Sugar().Infow("Loaded AWS KMS signing key", "keyId", keyId, "address", addr.String())
	return s, nil
}

func (s *AWSKMSSigner) Scheme() crypto.SignatureScheme {
	return crypto.ECDSA_SECP256K1_KECCAK256
}

func (s *AWSKMSSigner) Public() crypto.PublicKey {
	return s.public
}

func (s *AWSKMSSigner) Sign(ctx context.Context, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, crypto.ErrEmptyInput
	}
	sig, err := s.getSignatureFromKms(ctx, ethcrypto.Keccak256(data))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to sign with KMS key %s", s.keyId)
	}
	return sig, nil
}

func (s *AWSKMSSigner) getPublicKey(ctx context.Context) (*kms.GetPublicKeyOutput, error) {
	result, err := s.kmsClient.GetPublicKey(ctx, &kms.GetPublicKeyInput{
		KeyId: aws.String(s.keyId),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get public key: %w", err)
	}
	return result, nil
}

// parseECDSAPublicKey parses the DER-encoded public key from KMS
func parseECDSAPublicKey(derBytes []byte) (*stdecdsa.PublicKey, error) {
	var asn1pubk asn1EcPublicKey
	if _, err := asn1.Unmarshal(derBytes, &asn1pubk); err != nil {
		return nil, fmt.Errorf("failed to parse ASN.1 public key: %w", err)
	}
	return ethcrypto.UnmarshalPubkey(asn1pubk.PublicKey.Bytes)
}

type asn1EcSig struct {
	R asn1.RawValue
	S asn1.RawValue
}

type asn1EcPublicKey struct {
	EcPublicKeyInfo asn1EcPublicKeyInfo
	PublicKey       asn1.BitString
}

type asn1EcPublicKeyInfo struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.ObjectIdentifier
}

// getSignatureFromKms returns r ‖ s ‖ v with v in the 27+ range.
func (s *AWSKMSSigner) getSignatureFromKms(ctx context.Context, digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("hash must be exactly 32 bytes, got %d", len(digest))
	}

	signOutput, err := s.kmsClient.Sign(ctx, &kms.SignInput{
		KeyId:            aws.String(s.keyId),
		Message:          digest,
		SigningAlgorithm: types.SigningAlgorithmSpecEcdsaSha256,
		MessageType:      types.MessageTypeDigest,
	})
	if err != nil {
		return nil, err
	}

	var sigAsn1 asn1EcSig
	if _, err := asn1.Unmarshal(signOutput.Signature, &sigAsn1); err != nil {
		return nil, fmt.Errorf("failed to parse KMS signature: %w", err)
	}

	r := new(big.Int).SetBytes(sigAsn1.R.Bytes)
	sv := new(big.Int).SetBytes(sigAsn1.S.Bytes)
	if sv.Cmp(halfOrder) > 0 {
		sv = new(big.Int).Sub(curveOrder, sv)
	}

	signature := make([]byte, 65)
	r.FillBytes(signature[0:32])
	sv.FillBytes(signature[32:64])

	// crypto.Ecrecover expects recovery ids 0-3
	for recoveryId := 0; recoveryId < 4; recoveryId++ {
		signature[64] = byte(recoveryId)

		recoveredPubKeyBytes, err := ethcrypto.Ecrecover(digest, signature)
		if err != nil {
			s.logger.Debug("Ecrecover failed",
				zap.Int("recoveryId", recoveryId),
				zap.Error(err))
			continue
		}

		recovered, err := ethcrypto.UnmarshalPubkey(recoveredPubKeyBytes)
		if err != nil {
			s.logger.Warn("Failed to unmarshal recovered public key",
				zap.Int("recoveryId", recoveryId),
				zap.Error(err))
			continue
		}

		if recovered.X.Cmp(s.publicKey.X) == 0 && recovered.Y.Cmp(s.publicKey.Y) == 0 {
			signature[64] = byte(27 + recoveryId)
			return signature, nil
		}
	}

	return nil, fmt.Errorf("could not determine valid recovery ID - signature recovery failed")
}
