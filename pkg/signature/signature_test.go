package signature

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/codec"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/logger"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/signer"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/signer/inMemorySigner"
)

const testPlatformVersion = 4

func newTestSigner(t *testing.T, scheme crypto.SignatureScheme) signer.ISigner {
	t.Helper()
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)
	s, err := inMemorySigner.GenerateInMemorySigner(scheme, l)
	require.NoError(t, err)
	return s
}

func txIDs(ds *digest.DigestService, n int) []digest.SecureHash {
	ids := make([]digest.SecureHash, n)
	for i := range ids {
		ids[i] = ds.HashString(fmt.Sprintf("tx-%d", i))
	}
	return ids
}

func TestBatchSignatureScenario(t *testing.T) {
	schemes := []crypto.SignatureScheme{
		crypto.ECDSA_SECP256K1_KECCAK256,
		crypto.ECDSA_SECP256R1_SHA256,
		crypto.EDDSA_ED25519_SHA512,
	}
	algorithms := []digest.Algorithm{digest.SHA256, digest.SHA512, digest.BLAKE2s256}

	for _, scheme := range schemes {
		for _, alg := range algorithms {
			t.Run(fmt.Sprintf("%s/%s", scheme, alg), func(t *testing.T) {
				ctx := context.Background()
				ds := digest.MustDigestService(alg)
				s := newTestSigner(t, scheme)
				ids := txIDs(ds, 5)

				batch, err := SignBatch(ctx, ds, ids, s, SignatureMetadata{PlatformVersion: testPlatformVersion})
				require.NoError(t, err)
				require.Nil(t, batch.Signature.PartialMerkleTree())
				require.False(t, batch.Signature.IsAttached())
				require.Equal(t, scheme.ID(), batch.Signature.Metadata().SchemeNumberID)

				// Attach a partial tree over the rehashed first id by hand.
				pmt, err := merkle.BuildPartialMerkleTree(batch.Tree, []digest.SecureHash{ds.Rehash(ids[0])})
				require.NoError(t, err)
				attached, err := batch.Signature.WithPartialMerkleTree(pmt)
				require.NoError(t, err)
				require.False(t, batch.Signature.IsAttached(), "attaching must not modify the original")

				require.NoError(t, Verify(ids[0], attached))
				ok, err := IsValid(ids[0], attached)
				require.NoError(t, err)
				require.True(t, ok)

				err = Verify(ids[1], attached)
				require.ErrorIs(t, err, ErrTransactionNotCovered)
				_, err = IsValid(ids[1], attached)
				require.ErrorIs(t, err, ErrTransactionNotCovered)

				err = Verify(ids[0], batch.Signature)
				require.Error(t, err)
				var sigErr *SignatureError
				require.True(t, errors.As(err, &sigErr))
				require.True(t, errors.Is(err, crypto.ErrSignatureVerification))
				require.False(t, errors.Is(err, ErrTransactionNotCovered))

				ok, err = IsValid(ids[0], batch.Signature)
				require.NoError(t, err)
				require.False(t, ok)
			})
		}
	}
}

func TestForParticipant(t *testing.T) {
	ctx := context.Background()
	ds := digest.NewSHA256()
	s := newTestSigner(t, crypto.ECDSA_SECP256K1_KECCAK256)
	ids := txIDs(ds, 7)

	batch, err := SignBatch(ctx, ds, ids, s, SignatureMetadata{PlatformVersion: testPlatformVersion})
	require.NoError(t, err)
	require.Equal(t, ids, batch.TxIDs())

	for i, id := range ids {
		sig, err := batch.ForParticipant(id)
		require.NoError(t, err)
		require.True(t, sig.IsAttached())
		require.NoError(t, Verify(id, sig))

		index, err := sig.PartialMerkleTree().LeafIndex(ds.Rehash(id))
		require.NoError(t, err)
		assert.Equal(t, i, index)

		// A proof for one participant never vouches for another.
		other := ids[(i+1)%len(ids)]
		require.ErrorIs(t, Verify(other, sig), ErrTransactionNotCovered)
	}

	_, err = batch.ForParticipant(ds.HashString("not in batch"))
	require.ErrorIs(t, err, ErrTransactionNotCovered)

	sig, err := batch.ForParticipant(ids[0])
	require.NoError(t, err)
	_, err = sig.WithPartialMerkleTree(sig.PartialMerkleTree())
	require.ErrorIs(t, err, ErrAlreadyAttached)
}

func TestForParticipantRepeatedID(t *testing.T) {
	ctx := context.Background()
	ds := digest.NewSHA256()
	s := newTestSigner(t, crypto.EDDSA_ED25519_SHA512)
	ids := txIDs(ds, 3)
	ids = append(ids, ids[1])

	batch, err := SignBatch(ctx, ds, ids, s, SignatureMetadata{PlatformVersion: testPlatformVersion})
	require.NoError(t, err)

	sig, err := batch.ForParticipant(ids[1])
	require.NoError(t, err)
	require.NoError(t, Verify(ids[1], sig))

	indices, err := sig.PartialMerkleTree().LeafIndices(ds.Rehash(ids[1]))
	require.NoError(t, err)
	require.Equal(t, []int{1, 3}, indices)
}

func TestSingleTransactionSignature(t *testing.T) {
	ctx := context.Background()
	ds := digest.NewSHA256()
	s := newTestSigner(t, crypto.ECDSA_SECP256R1_SHA256)
	id := ds.HashString("tx")

	sig, err := Sign(ctx, id, s, SignatureMetadata{PlatformVersion: testPlatformVersion})
	require.NoError(t, err)
	require.True(t, sig.By().Equal(s.Public()))
	require.NoError(t, Verify(id, sig))

	err = Verify(ds.HashString("other"), sig)
	require.ErrorIs(t, err, crypto.ErrSignatureVerification)

	// Metadata is signed too.
	forged := NewTransactionSignature(sig.Bytes(), sig.By(), SignatureMetadata{
		PlatformVersion: testPlatformVersion + 1,
		SchemeNumberID:  sig.Metadata().SchemeNumberID,
	})
	ok, err := IsValid(id, forged)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSignValidation(t *testing.T) {
	ctx := context.Background()
	ds := digest.NewSHA256()
	s := newTestSigner(t, crypto.ECDSA_SECP256K1_KECCAK256)

	_, err := Sign(ctx, ds.HashString("tx"), s, SignatureMetadata{SchemeNumberID: crypto.EDDSA_ED25519_SHA512.ID()})
	require.ErrorIs(t, err, ErrSchemeMismatch)

	_, err = Sign(ctx, digest.SecureHash{}, s, SignatureMetadata{})
	require.Error(t, err)

	_, err = Sign(ctx, ds.HashString("tx"), nil, SignatureMetadata{})
	require.Error(t, err)

	_, err = SignBatch(ctx, ds, nil, s, SignatureMetadata{})
	require.ErrorIs(t, err, merkle.ErrEmptyTree)

	mixed := []digest.SecureHash{ds.HashString("a"), digest.MustDigestService(digest.SHA512).HashString("b")}
	_, err = SignBatch(ctx, ds, mixed, s, SignatureMetadata{})
	require.Error(t, err)
}

func TestVerifyWithForeignTree(t *testing.T) {
	ctx := context.Background()
	ds := digest.NewSHA256()
	s := newTestSigner(t, crypto.ECDSA_SECP256K1_KECCAK256)
	ids := txIDs(ds, 4)

	batch, err := SignBatch(ctx, ds, ids, s, SignatureMetadata{})
	require.NoError(t, err)

	// A well-formed tree from a different batch that includes ids[0].
	otherBatch, err := SignBatch(ctx, ds, []digest.SecureHash{ids[0], ds.HashString("x")}, s, SignatureMetadata{})
	require.NoError(t, err)
	foreign, err := otherBatch.ForParticipant(ids[0])
	require.NoError(t, err)

	swapped, err := batch.Signature.WithPartialMerkleTree(foreign.PartialMerkleTree())
	require.NoError(t, err)

	err = Verify(ids[0], swapped)
	require.ErrorIs(t, err, crypto.ErrSignatureVerification)
	ok, err := IsValid(ids[0], swapped)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyWithForgedSibling(t *testing.T) {
	ctx := context.Background()
	ds := digest.NewSHA256()
	s := newTestSigner(t, crypto.ECDSA_SECP256K1_KECCAK256)
	ids := txIDs(ds, 2)

	batch, err := SignBatch(ctx, ds, ids, s, SignatureMetadata{})
	require.NoError(t, err)

	node, err := merkle.NewPartialNode(
		merkle.NewIncludedLeaf(ds.Rehash(ids[0])),
		merkle.NewPrunedLeaf(ds.HashString("forged")),
	)
	require.NoError(t, err)
	forged, err := merkle.NewPartialMerkleTree(node)
	require.NoError(t, err)

	sig, err := batch.Signature.WithPartialMerkleTree(forged)
	require.NoError(t, err)

	err = Verify(ids[0], sig)
	require.ErrorIs(t, err, crypto.ErrSignatureVerification)
	require.False(t, errors.Is(err, ErrTransactionNotCovered))
}

func TestTransactionSignatureEncoding(t *testing.T) {
	ctx := context.Background()
	ds := digest.MustDigestService(digest.Keccak256)
	s := newTestSigner(t, crypto.ECDSA_SECP256K1_KECCAK256)
	ids := txIDs(ds, 9)

	batch, err := SignBatch(ctx, ds, ids, s, SignatureMetadata{PlatformVersion: testPlatformVersion})
	require.NoError(t, err)
	attached, err := batch.ForParticipant(ids[6])
	require.NoError(t, err)

	for _, format := range []codec.Format{codec.FormatJSON, codec.FormatCBOR} {
		t.Run(format.String(), func(t *testing.T) {
			for name, sig := range map[string]*TransactionSignature{"unattached": batch.Signature, "attached": attached} {
				data, err := codec.Marshal(format, sig)
				require.NoError(t, err, name)

				var decoded TransactionSignature
				require.NoError(t, codec.Unmarshal(format, data, &decoded), name)
				require.Equal(t, sig.Bytes(), decoded.Bytes())
				require.True(t, sig.By().Equal(decoded.By()))
				require.Equal(t, sig.Metadata(), decoded.Metadata())
				require.Equal(t, sig.IsAttached(), decoded.IsAttached())
			}

			data, err := codec.Marshal(format, attached)
			require.NoError(t, err)
			var decoded TransactionSignature
			require.NoError(t, codec.Unmarshal(format, data, &decoded))
			require.NoError(t, Verify(ids[6], &decoded))
			require.ErrorIs(t, Verify(ids[5], &decoded), ErrTransactionNotCovered)
		})
	}
}

func TestSignableDataBytes(t *testing.T) {
	ds := digest.NewSHA256()
	d := SignableData{TxID: ds.HashString("tx"), Metadata: SignatureMetadata{PlatformVersion: 1, SchemeNumberID: 2}}

	first, err := d.Bytes()
	require.NoError(t, err)
	second, err := d.Bytes()
	require.NoError(t, err)
	require.Equal(t, first, second)

	d.Metadata.PlatformVersion = 2
	third, err := d.Bytes()
	require.NoError(t, err)
	require.NotEqual(t, first, third)

	_, err = SignableData{}.Bytes()
	require.Error(t, err)
}

func TestRestoreBatchSignature(t *testing.T) {
	ctx := context.Background()
	ds := digest.NewSHA256()
	s := newTestSigner(t, crypto.ECDSA_SECP256K1_KECCAK256)
	ids := txIDs(ds, 6)

	batch, err := SignBatch(ctx, ds, ids, s, SignatureMetadata{PlatformVersion: testPlatformVersion})
	require.NoError(t, err)

	restored, err := RestoreBatchSignature(ds, batch.TxIDs(), batch.Signature)
	require.NoError(t, err)
	require.Equal(t, batch.Root(), restored.Root())

	sig, err := restored.ForParticipant(ids[4])
	require.NoError(t, err)
	require.NoError(t, Verify(ids[4], sig))

	// Reordered ids give a different root the signature does not cover.
	reordered := append([]digest.SecureHash{ids[1], ids[0]}, ids[2:]...)
	_, err = RestoreBatchSignature(ds, reordered, batch.Signature)
	require.ErrorIs(t, err, crypto.ErrSignatureVerification)

	attached, err := batch.ForParticipant(ids[0])
	require.NoError(t, err)
	_, err = RestoreBatchSignature(ds, ids, attached)
	require.ErrorIs(t, err, ErrAlreadyAttached)

	_, err = RestoreBatchSignature(ds, nil, batch.Signature)
	require.ErrorIs(t, err, merkle.ErrEmptyTree)
}
