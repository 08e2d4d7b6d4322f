package signature

import (
	"fmt"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/codec"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/merkle"
)

// SignatureMetadata travels with every signature and is part of what is signed.
type SignatureMetadata struct {
	PlatformVersion int `json:"platformVersion" cbor:"1,keyasint"`
	SchemeNumberID  int `json:"schemeNumberID" cbor:"2,keyasint"`
}

// SignableData is the exact content a signer signs: a transaction id or a
// batch root, plus metadata.
type SignableData struct {
	TxID     digest.SecureHash `cbor:"1,keyasint"`
	Metadata SignatureMetadata `cbor:"2,keyasint"`
}

// Bytes is the deterministic CBOR encoding of the signable data.
func (d SignableData) Bytes() ([]byte, error) {
	if d.TxID.IsEmpty() {
		return nil, fmt.Errorf("signable data has no transaction id")
	}
	return codec.CBOREncMode().Marshal(d)
}

// TransactionSignature is an immutable signature over SignableData. A batch
// signature becomes a per-transaction proof once a partial tree is attached.
type TransactionSignature struct {
	bytes             []byte
	by                crypto.PublicKey
	metadata          SignatureMetadata
	partialMerkleTree *merkle.PartialMerkleTree
}

func NewTransactionSignature(bytes []byte, by crypto.PublicKey, metadata SignatureMetadata) *TransactionSignature {
	return &TransactionSignature{
		bytes:    append([]byte(nil), bytes...),
		by:       by,
		metadata: metadata,
	}
}

// Bytes returns a copy of the raw signature.
func (s *TransactionSignature) Bytes() []byte {
	return append([]byte(nil), s.bytes...)
}

func (s *TransactionSignature) By() crypto.PublicKey {
	return s.by
}

func (s *TransactionSignature) Metadata() SignatureMetadata {
	return s.metadata
}

// PartialMerkleTree is nil for a signature over a single transaction id.
func (s *TransactionSignature) PartialMerkleTree() *merkle.PartialMerkleTree {
	return s.partialMerkleTree
}

func (s *TransactionSignature) IsAttached() bool {
	return s.partialMerkleTree != nil
}

// WithPartialMerkleTree returns a copy of s carrying pmt. A signature can be
// attached only once.
func (s *TransactionSignature) WithPartialMerkleTree(pmt *merkle.PartialMerkleTree) (*TransactionSignature, error) {
	if pmt == nil {
		return nil, fmt.Errorf("partial merkle tree is nil")
	}
	if s.partialMerkleTree != nil {
		return nil, ErrAlreadyAttached
	}
	return &TransactionSignature{
		bytes:             s.bytes,
		by:                s.by,
		metadata:          s.metadata,
		partialMerkleTree: pmt,
	}, nil
}
