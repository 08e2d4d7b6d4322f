package digest

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// SecureHash is a fixed-length digest tagged with the algorithm that produced
// it. It is a comparable value: == compares algorithm and bytes, so it can be
// used directly as a map key.
type SecureHash struct {
	algorithm Algorithm
	value     string
}

// NewSecureHash wraps raw digest bytes. The algorithm must be registered and
// the length must match its digest size.
func NewSecureHash(alg Algorithm, b []byte) (SecureHash, error) {
	spec, ok := lookup(alg)
	if !ok {
		return SecureHash{}, fmt.Errorf("unsupported digest algorithm: %s", alg)
	}
	if len(b) != spec.size {
		return SecureHash{}, fmt.Errorf("invalid %s digest length: expected %d bytes, got %d", alg, spec.size, len(b))
	}
	return SecureHash{algorithm: alg, value: string(b)}, nil
}

// Parse reads the text form produced by String. A bare hex string is read as
// SHA-256.
func Parse(s string) (SecureHash, error) {
	alg, hexPart, found := strings.Cut(s, ":")
	if !found {
		alg, hexPart = string(SHA256), s
	}
	hexPart = strings.TrimPrefix(hexPart, "0x")

	b, err := hex.DecodeString(hexPart)
	if err != nil {
		return SecureHash{}, fmt.Errorf("invalid digest hex %q: %w", s, err)
	}
	return NewSecureHash(Algorithm(alg), b)
}

func (h SecureHash) Algorithm() Algorithm {
	return h.algorithm
}

// Bytes returns a copy of the digest bytes.
func (h SecureHash) Bytes() []byte {
	return []byte(h.value)
}

func (h SecureHash) Size() int {
	return len(h.value)
}

// IsEmpty reports whether h is the uninitialised SecureHash{}.
func (h SecureHash) IsEmpty() bool {
	return h.algorithm == "" && h.value == ""
}

// IsZeroHash reports whether h is the all-zero padding sentinel of its algorithm.
func (h SecureHash) IsZeroHash() bool {
	if h.IsEmpty() {
		return false
	}
	return bytes.Count([]byte(h.value), []byte{0}) == len(h.value)
}

func (h SecureHash) Hex() string {
	return hex.EncodeToString([]byte(h.value))
}

func (h SecureHash) String() string {
	if h.IsEmpty() {
		return ""
	}
	return string(h.algorithm) + ":" + h.Hex()
}

// Prefix returns the first n hex characters of the digest, for log lines.
func (h SecureHash) Prefix(n int) string {
	s := h.Hex()
	if n < len(s) {
		return s[:n]
	}
	return s
}

func (h SecureHash) MarshalText() ([]byte, error) {
	if h.IsEmpty() {
		return nil, fmt.Errorf("cannot marshal empty SecureHash")
	}
	return []byte(h.String()), nil
}

func (h *SecureHash) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

func (h SecureHash) MarshalCBOR() ([]byte, error) {
	text, err := h.MarshalText()
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(string(text))
}

func (h *SecureHash) UnmarshalCBOR(data []byte) error {
	var text string
	if err := cbor.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("failed to decode SecureHash: %w", err)
	}
	return h.UnmarshalText([]byte(text))
}

// Concatenate hashes left ‖ right with their common algorithm. This is the
// combine function used at every internal node of a Merkle tree.
func Concatenate(left, right SecureHash) (SecureHash, error) {
	if left.algorithm != right.algorithm {
		return SecureHash{}, fmt.Errorf("cannot combine %s digest with %s digest", left.algorithm, right.algorithm)
	}
	spec, ok := lookup(left.algorithm)
	if !ok {
		return SecureHash{}, fmt.Errorf("unsupported digest algorithm: %s", left.algorithm)
	}

	data := make([]byte, 0, len(left.value)+len(right.value))
	data = append(data, left.value...)
	data = append(data, right.value...)
	return SecureHash{algorithm: left.algorithm, value: string(spec.fn(data))}, nil
}
