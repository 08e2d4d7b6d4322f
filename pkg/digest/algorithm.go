package digest

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"
)

// Algorithm names a digest algorithm. The name is part of the text form of a
// SecureHash, so it must not contain ':'.
type Algorithm string

func (a Algorithm) String() string {
	return string(a)
}

const (
	SHA256     Algorithm = "SHA-256"
	SHA384     Algorithm = "SHA-384"
	SHA512     Algorithm = "SHA-512"
	Keccak256  Algorithm = "KECCAK-256"
	SHA3_256   Algorithm = "SHA3-256"
	BLAKE2s256 Algorithm = "BLAKE2S-256"
	BLAKE2b256 Algorithm = "BLAKE2B-256"

	DefaultAlgorithm = SHA256
)

type hashFunc func(data []byte) []byte

type algorithmSpec struct {
	size int
	fn   hashFunc
}

var (
	registryMu sync.RWMutex
	registry   = map[Algorithm]algorithmSpec{
		SHA256: {size: sha256.Size, fn: func(data []byte) []byte {
			sum := sha256.Sum256(data)
			return sum[:]
		}},
		SHA384: {size: sha512.Size384, fn: func(data []byte) []byte {
			sum := sha512.Sum384(data)
			return sum[:]
		}},
		SHA512: {size: sha512.Size, fn: func(data []byte) []byte {
			sum := sha512.Sum512(data)
			return sum[:]
		}},
		Keccak256: {size: 32, fn: func(data []byte) []byte {
			return crypto.Keccak256(data)
		}},
		SHA3_256: {size: 32, fn: func(data []byte) []byte {
			sum := sha3.Sum256(data)
			return sum[:]
		}},
		BLAKE2s256: {size: blake2s.Size, fn: func(data []byte) []byte {
			sum := blake2s.Sum256(data)
			return sum[:]
		}},
		BLAKE2b256: {size: blake2b.Size256, fn: func(data []byte) []byte {
			sum := blake2b.Sum256(data)
			return sum[:]
		}},
	}
)

// RegisterAlgorithm makes a custom digest algorithm available to NewDigestService
// and to SecureHash parsing. Built-in algorithms cannot be replaced.
func RegisterAlgorithm(alg Algorithm, size int, fn func(data []byte) []byte) error {
	if alg == "" || strings.Contains(string(alg), ":") {
		return fmt.Errorf("invalid digest algorithm name %q", alg)
	}
	if size <= 0 {
		return fmt.Errorf("digest algorithm %s must have a positive size, got %d", alg, size)
	}
	if fn == nil {
		return fmt.Errorf("digest algorithm %s has no hash function", alg)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[alg]; exists {
		return fmt.Errorf("digest algorithm %s is already registered", alg)
	}
	registry[alg] = algorithmSpec{size: size, fn: fn}
	return nil
}

// SupportedAlgorithms returns every registered algorithm in name order.
func SupportedAlgorithms() []Algorithm {
	registryMu.RLock()
	defer registryMu.RUnlock()

	algs := make([]Algorithm, 0, len(registry))
	for alg := range registry {
		algs = append(algs, alg)
	}
	sort.Slice(algs, func(i, j int) bool {
		return algs[i] < algs[j]
	})
	return algs
}

// IsSupported reports whether alg has been registered.
func IsSupported(alg Algorithm) bool {
	_, ok := lookup(alg)
	return ok
}

func lookup(alg Algorithm) (algorithmSpec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	spec, ok := registry[alg]
	return spec, ok
}
