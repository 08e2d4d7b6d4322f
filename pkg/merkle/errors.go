package merkle

import "fmt"

// ErrorKind classifies a MerkleTreeError.
type ErrorKind int

const (
	KindEmptyTree ErrorKind = iota + 1
	KindHashNotFound
	KindDuplicateMismatch
	KindLeafNotIncluded
	KindMalformedTree
)

func (k ErrorKind) String() string {
	switch k {
	case KindEmptyTree:
		return "empty tree"
	case KindHashNotFound:
		return "hash not found"
	case KindDuplicateMismatch:
		return "duplicate mismatch"
	case KindLeafNotIncluded:
		return "leaf not included"
	case KindMalformedTree:
		return "malformed tree"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// MerkleTreeError is returned when a tree or partial tree cannot be built
// from the given request. Errors compare equal under errors.Is by Kind.
type MerkleTreeError struct {
	Kind ErrorKind
	Msg  string
}

func (e *MerkleTreeError) Error() string {
	if e.Msg == "" {
		return "merkle tree: " + e.Kind.String()
	}
	return fmt.Sprintf("merkle tree: %s: %s", e.Kind, e.Msg)
}

func (e *MerkleTreeError) Is(target error) bool {
	t, ok := target.(*MerkleTreeError)
	return ok && t.Kind == e.Kind
}

var (
	ErrEmptyTree         = &MerkleTreeError{Kind: KindEmptyTree}
	ErrHashNotFound      = &MerkleTreeError{Kind: KindHashNotFound}
	ErrDuplicateMismatch = &MerkleTreeError{Kind: KindDuplicateMismatch}
	ErrLeafNotIncluded   = &MerkleTreeError{Kind: KindLeafNotIncluded}
	ErrMalformedTree     = &MerkleTreeError{Kind: KindMalformedTree}
)

func newError(kind ErrorKind, format string, args ...any) error {
	return &MerkleTreeError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
