package inMemorySigner

import (
	"context"
	stdecdsa "crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"fmt"
	"strings"

	"github.com/Layr-Labs/crypto-libs/pkg/ecdsa"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/crypto"
)

// InMemorySigner holds a private key in process memory.
type InMemorySigner struct {
	logger     *zap.Logger
	privateKey interface{}
	scheme     crypto.SignatureScheme
	public     crypto.PublicKey
}

// NewInMemorySignerFromHex loads a private key in the format produced by
// GeneratePrivateKeyHex:
//   - secp256k1: 32-byte scalar
//   - secp256r1: SEC 1 DER
//   - ed25519: 32-byte seed
func NewInMemorySignerFromHex(scheme crypto.SignatureScheme, privateKeyHex string, logger *zap.Logger) (*InMemorySigner, error) {
	switch scheme {
	case crypto.ECDSA_SECP256K1_KECCAK256:
		return NewSecp256k1InMemorySigner(privateKeyHex, logger)
	case crypto.ECDSA_SECP256R1_SHA256:
		der, err := decodeHex(privateKeyHex)
		if err != nil {
			return nil, err
		}
		key, err := x509.ParseECPrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("error loading private key: %w", err)
		}
		return NewP256InMemorySigner(key, logger)
	case crypto.EDDSA_ED25519_SHA512:
		seed, err := decodeHex(privateKeyHex)
		if err != nil {
			return nil, err
		}
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("error loading private key: ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
		}
		return NewEd25519InMemorySigner(ed25519.NewKeyFromSeed(seed), logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", crypto.ErrUnsupportedScheme, scheme)
	}
}

func NewSecp256k1InMemorySigner(privateKeyHex string, logger *zap.Logger) (*InMemorySigner, error) {
	key, err := ecdsa.NewPrivateKeyFromHexString(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("error loading private key: %w", err)
	}
	return NewSecp256k1InMemorySignerFromKey(key, logger)
}

func NewSecp256k1InMemorySignerFromKey(key *ecdsa.PrivateKey, logger *zap.Logger) (*InMemorySigner, error) {
	if key == nil {
		return nil, fmt.Errorf("private key cannot be nil")
	}
	pub := key.Public()
	public := crypto.EncodeSecp256k1PublicKey(&stdecdsa.PublicKey{Curve: ethcrypto.S256(), X: pub.X, Y: pub.Y})

	address, err := key.DeriveAddress()
	if err != nil {
		return nil, fmt.Errorf("failed to derive Ethereum address from private key: %w", err)
	}
	logger.Sugar().Debugw("Loaded secp256k1 signing key", "address", address.String())

	return &InMemorySigner{
		logger:     logger,
		privateKey: key,
		scheme:     crypto.ECDSA_SECP256K1_KECCAK256,
		public:     public,
	}, nil
}

func NewP256InMemorySigner(key *stdecdsa.PrivateKey, logger *zap.Logger) (*InMemorySigner, error) {
	if key == nil || key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("private key must be a P-256 key")
	}
	public, err := crypto.EncodeP256PublicKey(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	return &InMemorySigner{
		logger:     logger,
		privateKey: key,
		scheme:     crypto.ECDSA_SECP256R1_SHA256,
		public:     public,
	}, nil
}

func NewEd25519InMemorySigner(key ed25519.PrivateKey, logger *zap.Logger) *InMemorySigner {
	return &InMemorySigner{
		logger:     logger,
		privateKey: key,
		scheme:     crypto.EDDSA_ED25519_SHA512,
		public:     crypto.EncodeEd25519PublicKey(key.Public().(ed25519.PublicKey)),
	}
}

// GenerateInMemorySigner creates a signer with a fresh random key.
func GenerateInMemorySigner(scheme crypto.SignatureScheme, logger *zap.Logger) (*InMemorySigner, error) {
	keyHex, err := GeneratePrivateKeyHex(scheme)
	if err != nil {
		return nil, err
	}
	return NewInMemorySignerFromHex(scheme, keyHex, logger)
}

// GeneratePrivateKeyHex creates a random private key and returns it in the
// hex form NewInMemorySignerFromHex reads.
func GeneratePrivateKeyHex(scheme crypto.SignatureScheme) (string, error) {
	switch scheme {
	case crypto.ECDSA_SECP256K1_KECCAK256:
		key, err := ethcrypto.GenerateKey()
		if err != nil {
			return "", fmt.Errorf("failed to generate secp256k1 key: %w", err)
		}
		return hexutil.Encode(ethcrypto.FromECDSA(key)), nil
	case crypto.ECDSA_SECP256R1_SHA256:
		key, err := stdecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return "", fmt.Errorf("failed to generate P-256 key: %w", err)
		}
		der, err := x509.MarshalECPrivateKey(key)
		if err != nil {
			return "", fmt.Errorf("failed to encode P-256 key: %w", err)
		}
		return hexutil.Encode(der), nil
	case crypto.EDDSA_ED25519_SHA512:
		_, key, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return "", fmt.Errorf("failed to generate ed25519 key: %w", err)
		}
		return hexutil.Encode(key.Seed()), nil
	default:
		return "", fmt.Errorf("%w: %s", crypto.ErrUnsupportedScheme, scheme)
	}
}

func (s *InMemorySigner) Scheme() crypto.SignatureScheme {
	return s.scheme
}

func (s *InMemorySigner) Public() crypto.PublicKey {
	return s.public
}

// Sign signs data under the signer's scheme. The context is unused since
// signing never leaves the process.
func (s *InMemorySigner) Sign(_ context.Context, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, crypto.ErrEmptyInput
	}
	digest, err := crypto.DigestFor(s.scheme, data)
	if err != nil {
		return nil, err
	}

	switch key := s.privateKey.(type) {
	case *ecdsa.PrivateKey:
		sig, err := key.Sign(digest)
		if err != nil {
			return nil, fmt.Errorf("failed to sign message: %w", err)
		}
		return withEthereumRecoveryID(sig.Bytes()), nil
	case *stdecdsa.PrivateKey:
		sig, err := stdecdsa.SignASN1(rand.Reader, key, digest)
		if err != nil {
			return nil, fmt.Errorf("failed to sign message: %w", err)
		}
		return sig, nil
	case ed25519.PrivateKey:
		return ed25519.Sign(key, digest), nil
	default:
		return nil, fmt.Errorf("unsupported private key type %T", s.privateKey)
	}
}

// withEthereumRecoveryID moves a 0/1 recovery byte into the 27+ range so
// in-memory and KMS signatures share one layout.
func withEthereumRecoveryID(sig []byte) []byte {
	if len(sig) == 65 && sig[64] < 27 {
		out := append([]byte(nil), sig...)
		out[64] += 27
		return out
	}
	return sig
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}
	return b, nil
}
