package merkle

import (
	"math/bits"

	"github.com/bits-and-blooms/bitset"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
)

// PartialMerkleTree is a pruned mirror of a MerkleTree that reveals a chosen
// set of leaves and keeps only the hashes of everything else. It is
// immutable once built and can be verified without the full tree.
type PartialMerkleTree struct {
	root PartialTree
}

// NewPartialMerkleTree wraps an already assembled partial tree, checking that
// every included leaf sits at the same depth so leaf indices stay meaningful.
func NewPartialMerkleTree(root PartialTree) (*PartialMerkleTree, error) {
	if _, err := checkShape(root, -1); err != nil {
		return nil, err
	}
	return &PartialMerkleTree{root: root}, nil
}

// BuildPartialMerkleTree prunes tree down to the leaves named in requested.
//
// Every requested value must be a leaf of tree, and a value occurring k times
// among the leaves must be requested exactly k times: duplicates are
// disclosed all together or not at all. An empty request yields a single
// pruned leaf carrying the root hash.
func BuildPartialMerkleTree(tree MerkleTree, requested []digest.SecureHash) (*PartialMerkleTree, error) {
	leaves, depth, err := leafDepths(tree)
	if err != nil {
		return nil, err
	}

	leafCounts := make(map[digest.SecureHash]int, len(leaves))
	for _, l := range leaves {
		leafCounts[l]++
	}
	requestCounts := make(map[digest.SecureHash]int, len(requested))
	for _, r := range requested {
		requestCounts[r]++
	}
	for _, r := range requested {
		have, ok := leafCounts[r]
		if !ok {
			return nil, newError(KindHashNotFound, "%s is not a leaf of the tree", r)
		}
		if want := requestCounts[r]; want != have {
			return nil, newError(KindDuplicateMismatch, "%s requested %d times but occurs %d times", r, want, have)
		}
	}

	marks := bitset.New(uint(len(leaves)))
	for i, l := range leaves {
		if requestCounts[l] > 0 {
			marks.Set(uint(i))
		}
	}

	return &PartialMerkleTree{root: prune(tree, marks, 0, uint(1)<<uint(depth))}, nil
}

// prune mirrors t, which covers leaf slots [offset, offset+width).
func prune(t MerkleTree, marks *bitset.BitSet, offset, width uint) PartialTree {
	if next, ok := marks.NextSet(offset); !ok || next >= offset+width {
		return &PrunedLeaf{hash: t.Hash()}
	}
	switch n := t.(type) {
	case *Node:
		half := width / 2
		return &PartialNode{
			hash:  n.hash,
			left:  prune(n.left, marks, offset, half),
			right: prune(n.right, marks, offset+half, half),
		}
	default:
		return &IncludedLeaf{hash: t.Hash()}
	}
}

// Root returns the top vertex of the partial tree.
func (p *PartialMerkleTree) Root() PartialTree {
	return p.root
}

// Hash is the stored root hash, empty for an empty tree. Use Verify to check
// it against leaf data.
func (p *PartialMerkleTree) Hash() digest.SecureHash {
	if p == nil || p.root == nil {
		return digest.SecureHash{}
	}
	return p.root.Hash()
}

// Verify reports whether the tree recomputes to claimedRoot and reveals
// exactly the multiset revealed. It never fails with an error.
func (p *PartialMerkleTree) Verify(claimedRoot digest.SecureHash, revealed []digest.SecureHash) bool {
	if p == nil || p.root == nil {
		return false
	}
	root, included, err := p.RootAndIncludedHashes()
	if err != nil || root != claimedRoot {
		return false
	}
	if len(included) != len(revealed) {
		return false
	}

	counts := make(map[digest.SecureHash]int, len(included))
	for _, h := range included {
		counts[h]++
	}
	for _, h := range revealed {
		counts[h]--
		if counts[h] < 0 {
			return false
		}
	}
	return true
}

// RootAndIncludedHashes recomputes the root from the leaves upwards, ignoring
// stored node hashes, and returns the included leaves in left to right order.
func (p *PartialMerkleTree) RootAndIncludedHashes() (digest.SecureHash, []digest.SecureHash, error) {
	var included []digest.SecureHash
	var recompute func(t PartialTree) (digest.SecureHash, error)
	recompute = func(t PartialTree) (digest.SecureHash, error) {
		switch n := t.(type) {
		case *IncludedLeaf:
			included = append(included, n.hash)
			return n.hash, nil
		case *PrunedLeaf:
			return n.hash, nil
		case *PartialNode:
			if n == nil || n.left == nil || n.right == nil {
				return digest.SecureHash{}, newError(KindMalformedTree, "partial node is missing a child")
			}
			left, err := recompute(n.left)
			if err != nil {
				return digest.SecureHash{}, err
			}
			right, err := recompute(n.right)
			if err != nil {
				return digest.SecureHash{}, err
			}
			h, err := digest.Concatenate(left, right)
			if err != nil {
				return digest.SecureHash{}, newError(KindMalformedTree, "%v", err)
			}
			return h, nil
		default:
			return digest.SecureHash{}, newError(KindMalformedTree, "unexpected partial tree vertex %T", t)
		}
	}

	root, err := recompute(p.root)
	if err != nil {
		return digest.SecureHash{}, nil, err
	}
	return root, included, nil
}

// IncludedLeaves returns the revealed leaf hashes from left to right.
func (p *PartialMerkleTree) IncludedLeaves() []digest.SecureHash {
	var out []digest.SecureHash
	p.walkIncluded(func(h digest.SecureHash, _ int) {
		out = append(out, h)
	})
	return out
}

// LeafIndex returns the position of hash among the original leaves. When the
// value was included more than once the smallest position is returned.
func (p *PartialMerkleTree) LeafIndex(hash digest.SecureHash) (int, error) {
	indices, err := p.LeafIndices(hash)
	if err != nil {
		return -1, err
	}
	return indices[0], nil
}

// LeafIndices returns every original position at which hash is included, in
// ascending order.
func (p *PartialMerkleTree) LeafIndices(hash digest.SecureHash) ([]int, error) {
	var indices []int
	p.walkIncluded(func(h digest.SecureHash, index int) {
		if h == hash {
			indices = append(indices, index)
		}
	})
	if len(indices) == 0 {
		return nil, newError(KindLeafNotIncluded, "%s is not an included leaf", hash)
	}
	return indices, nil
}

// walkIncluded visits included leaves left to right. The index of a leaf is
// read off its path: each step appends 0 for left and 1 for right. Included
// leaves all sit at the full tree depth, so the path is the slot number.
func (p *PartialMerkleTree) walkIncluded(visit func(h digest.SecureHash, index int)) {
	if p == nil {
		return
	}
	var walk func(t PartialTree, path int)
	walk = func(t PartialTree, path int) {
		switch n := t.(type) {
		case *IncludedLeaf:
			visit(n.hash, path)
		case *PartialNode:
			walk(n.left, path<<1)
			walk(n.right, path<<1|1)
		}
	}
	walk(p.root, 0)
}

// maxIncludedDepth is the deepest included leaf whose path still fits in a
// non-negative int.
const maxIncludedDepth = bits.UintSize - 2

// checkShape validates a partial tree assembled outside BuildPartialMerkleTree
// and returns its depth. maxDepth < 0 disables the depth limit.
func checkShape(root PartialTree, maxDepth int) (int, error) {
	if root == nil {
		return 0, newError(KindMalformedTree, "partial tree has no root")
	}
	leafDepth := -1
	maxSeen := 0
	var walk func(t PartialTree, d int) error
	walk = func(t PartialTree, d int) error {
		if maxDepth >= 0 && d > maxDepth {
			return newError(KindMalformedTree, "partial tree deeper than %d levels", maxDepth)
		}
		if d > maxSeen {
			maxSeen = d
		}
		switch n := t.(type) {
		case *IncludedLeaf:
			if n == nil || n.hash.IsEmpty() {
				return newError(KindMalformedTree, "included leaf without hash")
			}
			if d > maxIncludedDepth {
				return newError(KindMalformedTree, "included leaf at depth %d, index would overflow", d)
			}
			if leafDepth == -1 {
				leafDepth = d
			} else if leafDepth != d {
				return newError(KindMalformedTree, "included leaves at depths %d and %d", leafDepth, d)
			}
			return nil
		case *PrunedLeaf:
			if n == nil || n.hash.IsEmpty() {
				return newError(KindMalformedTree, "pruned leaf without hash")
			}
			return nil
		case *PartialNode:
			if n == nil || n.left == nil || n.right == nil {
				return newError(KindMalformedTree, "partial node is missing a child")
			}
			if err := walk(n.left, d+1); err != nil {
				return err
			}
			return walk(n.right, d+1)
		default:
			return newError(KindMalformedTree, "unexpected partial tree vertex %T", t)
		}
	}
	if err := walk(root, 0); err != nil {
		return 0, err
	}
	return maxSeen, nil
}
