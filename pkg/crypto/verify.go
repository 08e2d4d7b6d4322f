package crypto

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrSignatureVerification means the signature bytes do not match the
	// data under the given key.
	ErrSignatureVerification = errors.New("signature verification failed")
	ErrEmptyInput            = errors.New("signature and data must not be empty")
	ErrUnsupportedScheme     = errors.New("unsupported signature scheme")
)

// DigestFor returns the bytes a scheme actually signs for data. Ed25519
// signs the message itself.
func DigestFor(scheme SignatureScheme, data []byte) ([]byte, error) {
	switch scheme {
	case ECDSA_SECP256K1_KECCAK256:
		return ethcrypto.Keccak256(data), nil
	case ECDSA_SECP256R1_SHA256:
		sum := sha256.Sum256(data)
		return sum[:], nil
	case EDDSA_ED25519_SHA512:
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
}

// IsValid reports whether sig is a signature of data by pub. A mismatch is
// (false, nil); malformed keys and empty input are errors.
func IsValid(pub PublicKey, sig, data []byte) (bool, error) {
	if len(sig) == 0 || len(data) == 0 {
		return false, ErrEmptyInput
	}
	digest, err := DigestFor(pub.Scheme, data)
	if err != nil {
		return false, err
	}

	switch pub.Scheme {
	case ECDSA_SECP256K1_KECCAK256:
		key, err := pub.secp256k1()
		if err != nil {
			return false, err
		}
		// r ‖ s ‖ v, the recovery byte is not needed to verify.
		if len(sig) != 64 && len(sig) != 65 {
			return false, nil
		}
		r := new(big.Int).SetBytes(sig[:32])
		s := new(big.Int).SetBytes(sig[32:64])
		return ecdsa.Verify(key, digest, r, s), nil
	case ECDSA_SECP256R1_SHA256:
		key, err := pub.p256()
		if err != nil {
			return false, err
		}
		return ecdsa.VerifyASN1(key, digest, sig), nil
	case EDDSA_ED25519_SHA512:
		if err := pub.Validate(); err != nil {
			return false, err
		}
		return ed25519.Verify(ed25519.PublicKey(pub.Encoded), digest, sig), nil
	default:
		return false, fmt.Errorf("%w: %s", ErrUnsupportedScheme, pub.Scheme)
	}
}

// DoVerify is IsValid with a mismatch reported as ErrSignatureVerification.
func DoVerify(pub PublicKey, sig, data []byte) error {
	ok, err := IsValid(pub, sig, data)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s key %s", ErrSignatureVerification, pub.Scheme, pub)
	}
	return nil
}
