package merkle

import (
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
)

// BuildMerkleTree creates a perfect binary merkle tree over leaves, in order.
//
// The leaf sequence is padded with trailing copies of the digest service's
// zero hash up to the next power of two, then adjacent pairs are combined
// left to right, level by level, until a single root remains.
func BuildMerkleTree(leaves []digest.SecureHash, ds *digest.DigestService) (MerkleTree, error) {
	if len(leaves) == 0 {
		return nil, newError(KindEmptyTree, "cannot build merkle tree from empty leaf list")
	}
	for i, l := range leaves {
		if l.Algorithm() != ds.Algorithm() {
			return nil, newError(KindMalformedTree, "leaf %d uses %s, expected %s", i, l.Algorithm(), ds.Algorithm())
		}
	}

	padded := nextPowerOfTwo(len(leaves))
	currentLevel := make([]MerkleTree, 0, padded)
	for _, l := range leaves {
		currentLevel = append(currentLevel, NewLeaf(l))
	}
	for len(currentLevel) < padded {
		currentLevel = append(currentLevel, NewLeaf(ds.ZeroHash()))
	}

	for len(currentLevel) > 1 {
		nextLevel := make([]MerkleTree, 0, len(currentLevel)/2)
		for i := 0; i < len(currentLevel); i += 2 {
			parent, err := NewNode(currentLevel[i], currentLevel[i+1])
			if err != nil {
				return nil, err
			}
			nextLevel = append(nextLevel, parent)
		}
		currentLevel = nextLevel
	}

	return currentLevel[0], nil
}

// Leaves returns the leaf hashes of tree from left to right, padding included.
func Leaves(tree MerkleTree) []digest.SecureHash {
	var out []digest.SecureHash
	var walk func(t MerkleTree)
	walk = func(t MerkleTree) {
		switch n := t.(type) {
		case *Leaf:
			out = append(out, n.hash)
		case *Node:
			walk(n.left)
			walk(n.right)
		}
	}
	walk(tree)
	return out
}

// Depth is the number of edges from the root to the leftmost leaf.
func Depth(tree MerkleTree) int {
	depth := 0
	for {
		n, ok := tree.(*Node)
		if !ok {
			return depth
		}
		tree = n.left
		depth++
	}
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// leafDepths collects leaves and fails unless every leaf sits at the same depth.
func leafDepths(tree MerkleTree) ([]digest.SecureHash, int, error) {
	var (
		leaves []digest.SecureHash
		depth  = -1
	)
	var walk func(t MerkleTree, d int) error
	walk = func(t MerkleTree, d int) error {
		switch n := t.(type) {
		case *Leaf:
			if depth == -1 {
				depth = d
			} else if depth != d {
				return newError(KindMalformedTree, "leaves at depths %d and %d, tree is not perfect", depth, d)
			}
			leaves = append(leaves, n.hash)
			return nil
		case *Node:
			if err := walk(n.left, d+1); err != nil {
				return err
			}
			return walk(n.right, d+1)
		default:
			return newError(KindMalformedTree, "unexpected tree vertex %T", t)
		}
	}
	if tree == nil {
		return nil, 0, newError(KindEmptyTree, "tree is nil")
	}
	if err := walk(tree, 0); err != nil {
		return nil, 0, err
	}
	return leaves, depth, nil
}
