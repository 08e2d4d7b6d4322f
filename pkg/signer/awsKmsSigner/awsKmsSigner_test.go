package awsKmsSigner

import (
	"context"
	stdecdsa "crypto/ecdsa"
	"crypto/rand"
	"encoding/asn1"
	"fmt"
	"math/big"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/logger"
)

var (
	oidEcPublicKey = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	oidSecp256k1   = asn1.ObjectIdentifier{1, 3, 132, 0, 10}
)

// fakeKMS signs with a local secp256k1 key and answers in the KMS wire format.
type fakeKMS struct {
	key        *stdecdsa.PrivateKey
	forceHighS bool
	signCalls  int
}

func newFakeKMS(t *testing.T) *fakeKMS {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	return &fakeKMS{key: key}
}

func (f *fakeKMS) GetPublicKey(_ context.Context, params *kms.GetPublicKeyInput, _ ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error) {
	pub := ethcrypto.FromECDSAPub(&f.key.PublicKey)
	der, err := asn1.Marshal(asn1EcPublicKey{
		EcPublicKeyInfo: asn1EcPublicKeyInfo{Algorithm: oidEcPublicKey, Parameters: oidSecp256k1},
		PublicKey:       asn1.BitString{Bytes: pub, BitLength: len(pub) * 8},
	})
	if err != nil {
		return nil, err
	}
	return &kms.GetPublicKeyOutput{KeyId: params.KeyId, PublicKey: der}, nil
}

func (f *fakeKMS) Sign(_ context.Context, params *kms.SignInput, _ ...func(*kms.Options)) (*kms.SignOutput, error) {
	f.signCalls++
	if params.MessageType != types.MessageTypeDigest {
		return nil, fmt.Errorf("expected digest message type")
	}
	r, s, err := stdecdsa.Sign(rand.Reader, f.key, params.Message)
	if err != nil {
		return nil, err
	}
	if f.forceHighS && s.Cmp(halfOrder) <= 0 {
		s = new(big.Int).Sub(curveOrder, s)
	}
	der, err := asn1.Marshal(struct{ R, S *big.Int }{r, s})
	if err != nil {
		return nil, err
	}
	return &kms.SignOutput{KeyId: params.KeyId, Signature: der}, nil
}

func testLogger(t *testing.T) *zap.Logger {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: true})
	require.NoError(t, err)
	return l
}

func TestAWSKMSSigner_Sign(t *testing.T) {
	for _, highS := range []bool{false, true} {
		t.Run(fmt.Sprintf("highS=%v", highS), func(t *testing.T) {
			ctx := context.Background()
			fake := newFakeKMS(t)
			fake.forceHighS = highS

			s, err := NewAWSKMSSigner(ctx, fake, "alias/notary", testLogger(t))
			require.NoError(t, err)
			require.Equal(t, crypto.ECDSA_SECP256K1_KECCAK256, s.Scheme())
			require.Equal(t, ethcrypto.FromECDSAPub(&fake.key.PublicKey), []byte(s.Public().Encoded))

			data := []byte("batch root")
			sig, err := s.Sign(ctx, data)
			require.NoError(t, err)
			require.Len(t, sig, 65)
			require.GreaterOrEqual(t, sig[64], byte(27))
			require.Equal(t, 1, fake.signCalls)

			// Low S, and the recovery id recovers the KMS key.
			require.True(t, new(big.Int).SetBytes(sig[32:64]).Cmp(halfOrder) <= 0)
			recoverable := append([]byte(nil), sig...)
			recoverable[64] -= 27
			recovered, err := ethcrypto.SigToPub(ethcrypto.Keccak256(data), recoverable)
			require.NoError(t, err)
			require.Equal(t, ethcrypto.PubkeyToAddress(fake.key.PublicKey), ethcrypto.PubkeyToAddress(*recovered))

			ok, err := crypto.IsValid(s.Public(), sig, data)
			require.NoError(t, err)
			require.True(t, ok)
		})
	}
}

func TestAWSKMSSigner_Errors(t *testing.T) {
	ctx := context.Background()
	fake := newFakeKMS(t)

	_, err := NewAWSKMSSigner(ctx, fake, "", testLogger(t))
	require.Error(t, err)

	s, err := NewAWSKMSSigner(ctx, fake, "key", testLogger(t))
	require.NoError(t, err)
	_, err = s.Sign(ctx, nil)
	require.ErrorIs(t, err, crypto.ErrEmptyInput)

	_, err = s.getSignatureFromKms(ctx, []byte("short"))
	require.Error(t, err)
}

func TestParseECDSAPublicKey_Invalid(t *testing.T) {
	_, err := parseECDSAPublicKey([]byte("not der"))
	require.Error(t, err)
}
