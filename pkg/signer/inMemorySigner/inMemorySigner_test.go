package inMemorySigner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/logger"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/signer"
)

var allSchemes = []crypto.SignatureScheme{
	crypto.ECDSA_SECP256K1_KECCAK256,
	crypto.ECDSA_SECP256R1_SHA256,
	crypto.EDDSA_ED25519_SHA512,
}

func testLogger(t *testing.T) *zap.Logger {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)
	return l
}

func TestInMemorySigner_SignAndVerify(t *testing.T) {
	l := testLogger(t)
	ctx := context.Background()
	data := []byte("batch root")

	for _, scheme := range allSchemes {
		t.Run(scheme.String(), func(t *testing.T) {
			generated, err := GenerateInMemorySigner(scheme, l)
			require.NoError(t, err)
			var s signer.ISigner = generated
			require.Equal(t, scheme, s.Scheme())
			require.Equal(t, scheme, s.Public().Scheme)
			require.NoError(t, s.Public().Validate())

			sig, err := s.Sign(ctx, data)
			require.NoError(t, err)

			ok, err := crypto.IsValid(s.Public(), sig, data)
			require.NoError(t, err)
			require.True(t, ok)

			ok, err = crypto.IsValid(s.Public(), sig, []byte("other"))
			require.NoError(t, err)
			require.False(t, ok)

			_, err = s.Sign(ctx, nil)
			require.ErrorIs(t, err, crypto.ErrEmptyInput)
		})
	}
}

func TestInMemorySigner_LoadFromHex(t *testing.T) {
	l := testLogger(t)

	for _, scheme := range allSchemes {
		t.Run(scheme.String(), func(t *testing.T) {
			keyHex, err := GeneratePrivateKeyHex(scheme)
			require.NoError(t, err)

			first, err := NewInMemorySignerFromHex(scheme, keyHex, l)
			require.NoError(t, err)
			second, err := NewInMemorySignerFromHex(scheme, keyHex[2:], l)
			require.NoError(t, err)
			require.True(t, first.Public().Equal(second.Public()))
		})
	}
}

func TestInMemorySigner_KnownSecp256k1Key(t *testing.T) {
	l := testLogger(t)

	s, err := NewSecp256k1InMemorySigner("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", l)
	require.NoError(t, err)

	addr, err := s.Public().Address()
	require.NoError(t, err)
	require.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", addr.Hex())

	sig, err := s.Sign(context.Background(), []byte("hello"))
	require.NoError(t, err)
	require.Len(t, sig, 65)
	require.GreaterOrEqual(t, sig[64], byte(27))
}

func TestInMemorySigner_InvalidKeys(t *testing.T) {
	l := testLogger(t)

	_, err := NewInMemorySignerFromHex(crypto.EDDSA_ED25519_SHA512, "0x0102", l)
	require.Error(t, err)
	_, err = NewInMemorySignerFromHex(crypto.ECDSA_SECP256R1_SHA256, "0xzz", l)
	require.Error(t, err)
	_, err = NewInMemorySignerFromHex(crypto.SchemeUnknown, "0x01", l)
	require.ErrorIs(t, err, crypto.ErrUnsupportedScheme)
	_, err = GeneratePrivateKeyHex(crypto.SchemeUnknown)
	require.ErrorIs(t, err, crypto.ErrUnsupportedScheme)
	_, err = NewSecp256k1InMemorySignerFromKey(nil, l)
	require.Error(t, err)
}
