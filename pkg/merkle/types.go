package merkle

import (
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
)

// MerkleTree is a full binary tree of digests: either a *Leaf or a *Node.
type MerkleTree interface {
	Hash() digest.SecureHash
	isMerkleTree()
}

// Leaf holds one digest of the ordered input (or a zero padding sentinel).
type Leaf struct {
	hash digest.SecureHash
}

// Node is an internal vertex whose hash is combine(left.Hash(), right.Hash()).
type Node struct {
	hash  digest.SecureHash
	left  MerkleTree
	right MerkleTree
}

func NewLeaf(h digest.SecureHash) *Leaf {
	return &Leaf{hash: h}
}

// NewNode joins two subtrees, computing the node hash from the children.
func NewNode(left, right MerkleTree) (*Node, error) {
	if left == nil || right == nil {
		return nil, newError(KindMalformedTree, "node requires two children")
	}
	h, err := digest.Concatenate(left.Hash(), right.Hash())
	if err != nil {
		return nil, newError(KindMalformedTree, "%v", err)
	}
	return &Node{hash: h, left: left, right: right}, nil
}

func (l *Leaf) Hash() digest.SecureHash { return l.hash }
func (l *Leaf) isMerkleTree()           {}

func (n *Node) Hash() digest.SecureHash { return n.hash }
func (n *Node) Left() MerkleTree        { return n.left }
func (n *Node) Right() MerkleTree       { return n.right }
func (n *Node) isMerkleTree()           {}

// PartialTree is a vertex of a pruned tree: *IncludedLeaf, *PrunedLeaf or
// *PartialNode.
type PartialTree interface {
	Hash() digest.SecureHash
	isPartialTree()
}

// IncludedLeaf is a leaf whose value was requested and is revealed.
type IncludedLeaf struct {
	hash digest.SecureHash
}

// PrunedLeaf stands in for a hidden leaf or a whole hidden subtree.
type PrunedLeaf struct {
	hash digest.SecureHash
}

type PartialNode struct {
	hash  digest.SecureHash
	left  PartialTree
	right PartialTree
}

func NewIncludedLeaf(h digest.SecureHash) *IncludedLeaf {
	return &IncludedLeaf{hash: h}
}

func NewPrunedLeaf(h digest.SecureHash) *PrunedLeaf {
	return &PrunedLeaf{hash: h}
}

func NewPartialNode(left, right PartialTree) (*PartialNode, error) {
	if left == nil || right == nil {
		return nil, newError(KindMalformedTree, "partial node requires two children")
	}
	h, err := digest.Concatenate(left.Hash(), right.Hash())
	if err != nil {
		return nil, newError(KindMalformedTree, "%v", err)
	}
	return &PartialNode{hash: h, left: left, right: right}, nil
}

func (l *IncludedLeaf) Hash() digest.SecureHash { return l.hash }
func (l *IncludedLeaf) isPartialTree()          {}

func (l *PrunedLeaf) Hash() digest.SecureHash { return l.hash }
func (l *PrunedLeaf) isPartialTree()          {}

func (n *PartialNode) Hash() digest.SecureHash { return n.hash }
func (n *PartialNode) Left() PartialTree       { return n.left }
func (n *PartialNode) Right() PartialTree      { return n.right }
func (n *PartialNode) isPartialTree()          {}
