// Package signature signs transaction ids, alone or as a batch under one
// Merkle root, and verifies the result for a single transaction.
package signature

import (
	"context"
	"errors"
	"fmt"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/signer"
)

// Sign signs payload directly. The result carries no partial tree.
//
// A zero SchemeNumberID in metadata is filled in from the signer; any other
// value must match the signer's scheme.
func Sign(ctx context.Context, payload digest.SecureHash, s signer.ISigner, metadata SignatureMetadata) (*TransactionSignature, error) {
	if s == nil {
		return nil, fmt.Errorf("signer is nil")
	}
	if metadata.SchemeNumberID == 0 {
		metadata.SchemeNumberID = s.Scheme().ID()
	} else if metadata.SchemeNumberID != s.Scheme().ID() {
		return nil, fmt.Errorf("%w: metadata scheme %d, signer scheme %s", ErrSchemeMismatch, metadata.SchemeNumberID, s.Scheme())
	}

	data, err := SignableData{TxID: payload, Metadata: metadata}.Bytes()
	if err != nil {
		return nil, err
	}
	sig, err := s.Sign(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s: %w", payload, err)
	}
	return NewTransactionSignature(sig, s.Public(), metadata), nil
}

// BatchSignature is one signature over the Merkle root of many transaction
// ids, together with the tree needed to hand out per-transaction proofs.
type BatchSignature struct {
	Signature *TransactionSignature
	Tree      merkle.MerkleTree

	ds    *digest.DigestService
	txIDs []digest.SecureHash
}

// SignBatch builds a Merkle tree over the rehashed ids and signs its root.
// The returned signature is unattached.
func SignBatch(ctx context.Context, ds *digest.DigestService, ids []digest.SecureHash, s signer.ISigner, metadata SignatureMetadata) (*BatchSignature, error) {
	if len(ids) == 0 {
		return nil, merkle.ErrEmptyTree
	}
	leaves := make([]digest.SecureHash, len(ids))
	for i, id := range ids {
		if id.Algorithm() != ds.Algorithm() {
			return nil, fmt.Errorf("transaction id %d uses %s, batch uses %s", i, id.Algorithm(), ds.Algorithm())
		}
		leaves[i] = ds.Rehash(id)
	}

	tree, err := merkle.BuildMerkleTree(leaves, ds)
	if err != nil {
		return nil, fmt.Errorf("failed to build batch tree: %w", err)
	}
	sig, err := Sign(ctx, tree.Hash(), s, metadata)
	if err != nil {
		return nil, err
	}
	return &BatchSignature{
		Signature: sig,
		Tree:      tree,
		ds:        ds,
		txIDs:     append([]digest.SecureHash(nil), ids...),
	}, nil
}

// Root is the signed batch root.
func (b *BatchSignature) Root() digest.SecureHash {
	return b.Tree.Hash()
}

// TxIDs returns the batch's transaction ids in signing order.
func (b *BatchSignature) TxIDs() []digest.SecureHash {
	return append([]digest.SecureHash(nil), b.txIDs...)
}

// ForParticipant returns the batch signature with a partial tree revealing
// only txID, so the recipient can check its own transaction was covered.
func (b *BatchSignature) ForParticipant(txID digest.SecureHash) (*TransactionSignature, error) {
	leaf := b.ds.Rehash(txID)

	// Every occurrence of a repeated id has to be revealed together.
	var requested []digest.SecureHash
	for _, l := range merkle.Leaves(b.Tree) {
		if l == leaf {
			requested = append(requested, leaf)
		}
	}
	if len(requested) == 0 {
		return nil, fmt.Errorf("%w: %s is not part of the batch", ErrTransactionNotCovered, txID)
	}

	pmt, err := merkle.BuildPartialMerkleTree(b.Tree, requested)
	if err != nil {
		return nil, fmt.Errorf("failed to build partial tree for %s: %w", txID, err)
	}
	return b.Signature.WithPartialMerkleTree(pmt)
}

// Verify checks that sig is a valid signature covering txID.
//
// Without a partial tree the signature must be over txID itself. With one,
// the rehashed txID must be an included leaf, otherwise
// ErrTransactionNotCovered is returned, and the signature must be over the
// root recomputed from the tree. Cryptographic failures are *SignatureError.
func Verify(txID digest.SecureHash, sig *TransactionSignature) error {
	if sig == nil {
		return fmt.Errorf("signature is nil")
	}
	if txID.IsEmpty() {
		return fmt.Errorf("transaction id is empty")
	}
	if sig.metadata.SchemeNumberID != sig.by.Scheme.ID() {
		return &SignatureError{TxID: txID, Err: fmt.Errorf("%w: metadata scheme %d, key scheme %s", ErrSchemeMismatch, sig.metadata.SchemeNumberID, sig.by.Scheme)}
	}

	payload := txID
	if pmt := sig.partialMerkleTree; pmt != nil {
		ds, err := digest.NewDigestService(txID.Algorithm())
		if err != nil {
			return err
		}
		leaf := ds.Rehash(txID)

		root, included, err := pmt.RootAndIncludedHashes()
		if err != nil {
			return &SignatureError{TxID: txID, Err: err}
		}
		if !contains(included, leaf) {
			return fmt.Errorf("%w: %s", ErrTransactionNotCovered, txID)
		}
		// A forged sibling changes the recomputed root, which then fails the
		// signature check below.
		payload = root
	}

	data, err := SignableData{TxID: payload, Metadata: sig.metadata}.Bytes()
	if err != nil {
		return err
	}
	if err := crypto.DoVerify(sig.by, sig.bytes, data); err != nil {
		return &SignatureError{TxID: txID, Err: err}
	}
	return nil
}

// IsValid is Verify with a cryptographic mismatch reported as false. A
// signature that does not cover txID is still an error.
func IsValid(txID digest.SecureHash, sig *TransactionSignature) (bool, error) {
	err := Verify(txID, sig)
	if err == nil {
		return true, nil
	}
	var sigErr *SignatureError
	if errors.As(err, &sigErr) {
		return false, nil
	}
	return false, err
}

func contains(hashes []digest.SecureHash, h digest.SecureHash) bool {
	for _, x := range hashes {
		if x == h {
			return true
		}
	}
	return false
}

// RestoreBatchSignature rebuilds a BatchSignature from stored ids and the
// unattached signature over their root. The signature must verify against
// the recomputed root.
func RestoreBatchSignature(ds *digest.DigestService, ids []digest.SecureHash, sig *TransactionSignature) (*BatchSignature, error) {
	if sig == nil {
		return nil, fmt.Errorf("signature is nil")
	}
	if sig.IsAttached() {
		return nil, ErrAlreadyAttached
	}
	if len(ids) == 0 {
		return nil, merkle.ErrEmptyTree
	}
	leaves := make([]digest.SecureHash, len(ids))
	for i, id := range ids {
		if id.Algorithm() != ds.Algorithm() {
			return nil, fmt.Errorf("transaction id %d uses %s, batch uses %s", i, id.Algorithm(), ds.Algorithm())
		}
		leaves[i] = ds.Rehash(id)
	}
	tree, err := merkle.BuildMerkleTree(leaves, ds)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild batch tree: %w", err)
	}
	if err := Verify(tree.Hash(), sig); err != nil {
		return nil, fmt.Errorf("stored signature does not match batch root %s: %w", tree.Hash(), err)
	}
	return &BatchSignature{
		Signature: sig,
		Tree:      tree,
		ds:        ds,
		txIDs:     append([]digest.SecureHash(nil), ids...),
	}, nil
}
