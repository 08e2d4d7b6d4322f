package digest

import (
	"crypto/rand"
	"fmt"
)

// DigestService hashes bytes under one named algorithm and exposes that
// algorithm's zero sentinel. It holds no mutable state and is safe for
// concurrent use.
type DigestService struct {
	algorithm Algorithm
	spec      algorithmSpec
	zero      SecureHash
}

// NewDigestService returns a service for a registered algorithm.
func NewDigestService(alg Algorithm) (*DigestService, error) {
	spec, ok := lookup(alg)
	if !ok {
		return nil, fmt.Errorf("unsupported digest algorithm: %s", alg)
	}
	return &DigestService{
		algorithm: alg,
		spec:      spec,
		zero:      SecureHash{algorithm: alg, value: string(make([]byte, spec.size))},
	}, nil
}

// MustDigestService is NewDigestService for algorithms known at compile time.
func MustDigestService(alg Algorithm) *DigestService {
	ds, err := NewDigestService(alg)
	if err != nil {
		panic(err)
	}
	return ds
}

// NewSHA256 returns the default SHA-256 digest service.
func NewSHA256() *DigestService {
	return MustDigestService(SHA256)
}

func (ds *DigestService) Algorithm() Algorithm {
	return ds.algorithm
}

// Size is the digest length in bytes.
func (ds *DigestService) Size() int {
	return ds.spec.size
}

func (ds *DigestService) Hash(data []byte) SecureHash {
	return SecureHash{algorithm: ds.algorithm, value: string(ds.spec.fn(data))}
}

func (ds *DigestService) HashString(s string) SecureHash {
	return ds.Hash([]byte(s))
}

// ZeroHash is the all-zero sentinel used to pad Merkle trees.
func (ds *DigestService) ZeroHash() SecureHash {
	return ds.zero
}

// Combine hashes left ‖ right. Both digests must belong to this service's algorithm.
func (ds *DigestService) Combine(left, right SecureHash) (SecureHash, error) {
	if left.algorithm != ds.algorithm || right.algorithm != ds.algorithm {
		return SecureHash{}, fmt.Errorf("digest service %s cannot combine %s and %s digests", ds.algorithm, left.algorithm, right.algorithm)
	}
	return Concatenate(left, right)
}

// Rehash hashes the bytes of an existing digest. Batch roots are built over
// rehashed transaction ids so a batch leaf is never equal to a bare id.
func (ds *DigestService) Rehash(h SecureHash) SecureHash {
	return ds.Hash([]byte(h.value))
}

// RandomHash returns a digest-sized random value, tagged with this algorithm.
func (ds *DigestService) RandomHash() SecureHash {
	b := make([]byte, ds.spec.size)
	_, _ = rand.Read(b)
	return SecureHash{algorithm: ds.algorithm, value: string(b)}
}
