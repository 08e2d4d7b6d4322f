package merkle

import (
	"encoding/json"
	"fmt"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/codec"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
)

const (
	wireIncluded = "included"
	wirePruned   = "pruned"
	wireNode     = "node"
)

// wireTree is the transmitted form of a partial tree. Node hashes are not
// sent; they are recomputed from the leaves on decode.
type wireTree struct {
	Type  string             `json:"type" cbor:"1,keyasint"`
	Hash  *digest.SecureHash `json:"hash,omitempty" cbor:"2,keyasint,omitempty"`
	Left  *wireTree          `json:"left,omitempty" cbor:"3,keyasint,omitempty"`
	Right *wireTree          `json:"right,omitempty" cbor:"4,keyasint,omitempty"`
}

func toWire(t PartialTree) *wireTree {
	switch n := t.(type) {
	case *IncludedLeaf:
		h := n.hash
		return &wireTree{Type: wireIncluded, Hash: &h}
	case *PrunedLeaf:
		h := n.hash
		return &wireTree{Type: wirePruned, Hash: &h}
	case *PartialNode:
		return &wireTree{Type: wireNode, Left: toWire(n.left), Right: toWire(n.right)}
	default:
		return nil
	}
}

func fromWire(w *wireTree, depth int) (PartialTree, error) {
	if w == nil {
		return nil, newError(KindMalformedTree, "missing tree vertex")
	}
	if depth > codec.MaxTreeDepth {
		return nil, newError(KindMalformedTree, "partial tree deeper than %d levels", codec.MaxTreeDepth)
	}
	switch w.Type {
	case wireIncluded, wirePruned:
		if w.Hash == nil || w.Hash.IsEmpty() {
			return nil, newError(KindMalformedTree, "%s leaf without hash", w.Type)
		}
		if w.Left != nil || w.Right != nil {
			return nil, newError(KindMalformedTree, "%s leaf with children", w.Type)
		}
		if w.Type == wireIncluded {
			return NewIncludedLeaf(*w.Hash), nil
		}
		return NewPrunedLeaf(*w.Hash), nil
	case wireNode:
		left, err := fromWire(w.Left, depth+1)
		if err != nil {
			return nil, err
		}
		right, err := fromWire(w.Right, depth+1)
		if err != nil {
			return nil, err
		}
		return NewPartialNode(left, right)
	default:
		return nil, newError(KindMalformedTree, "unknown vertex type %q", w.Type)
	}
}

func (p *PartialMerkleTree) decodeWire(w *wireTree) error {
	root, err := fromWire(w, 0)
	if err != nil {
		return err
	}
	if _, err := checkShape(root, codec.MaxTreeDepth); err != nil {
		return err
	}
	p.root = root
	return nil
}

func (p PartialMerkleTree) MarshalJSON() ([]byte, error) {
	if p.root == nil {
		return nil, fmt.Errorf("cannot marshal empty partial merkle tree")
	}
	return json.Marshal(toWire(p.root))
}

func (p *PartialMerkleTree) UnmarshalJSON(data []byte) error {
	var w wireTree
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("failed to decode partial merkle tree: %w", err)
	}
	return p.decodeWire(&w)
}

func (p PartialMerkleTree) MarshalCBOR() ([]byte, error) {
	if p.root == nil {
		return nil, fmt.Errorf("cannot marshal empty partial merkle tree")
	}
	return codec.CBOREncMode().Marshal(toWire(p.root))
}

func (p *PartialMerkleTree) UnmarshalCBOR(data []byte) error {
	var w wireTree
	if err := codec.CBORDecMode().Unmarshal(data, &w); err != nil {
		return fmt.Errorf("failed to decode partial merkle tree: %w", err)
	}
	return p.decodeWire(&w)
}
