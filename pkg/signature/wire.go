package signature

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/codec"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/merkle"
)

type wireSignature struct {
	Bytes             hexutil.Bytes             `json:"bytes" cbor:"1,keyasint"`
	By                crypto.PublicKey          `json:"by" cbor:"2,keyasint"`
	Metadata          SignatureMetadata         `json:"metadata" cbor:"3,keyasint"`
	PartialMerkleTree *merkle.PartialMerkleTree `json:"partialMerkleTree,omitempty" cbor:"4,keyasint,omitempty"`
}

func (s *TransactionSignature) toWire() wireSignature {
	return wireSignature{
		Bytes:             s.bytes,
		By:                s.by,
		Metadata:          s.metadata,
		PartialMerkleTree: s.partialMerkleTree,
	}
}

func (s *TransactionSignature) fromWire(w wireSignature) error {
	if len(w.Bytes) == 0 {
		return fmt.Errorf("transaction signature has no signature bytes")
	}
	if err := w.By.Validate(); err != nil {
		return fmt.Errorf("transaction signature has an invalid key: %w", err)
	}
	*s = TransactionSignature{
		bytes:             w.Bytes,
		by:                w.By,
		metadata:          w.Metadata,
		partialMerkleTree: w.PartialMerkleTree,
	}
	return nil
}

func (s TransactionSignature) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.toWire())
}

func (s *TransactionSignature) UnmarshalJSON(data []byte) error {
	var w wireSignature
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("failed to decode transaction signature: %w", err)
	}
	return s.fromWire(w)
}

func (s TransactionSignature) MarshalCBOR() ([]byte, error) {
	return codec.CBOREncMode().Marshal(s.toWire())
}

func (s *TransactionSignature) UnmarshalCBOR(data []byte) error {
	var w wireSignature
	if err := codec.CBORDecMode().Unmarshal(data, &w); err != nil {
		return fmt.Errorf("failed to decode transaction signature: %w", err)
	}
	return s.fromWire(w)
}
