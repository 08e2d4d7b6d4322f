package crypto

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/x509"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// PublicKey identifies a signer. Encoded holds:
//   - ECDSA_SECP256K1_KECCAK256: 65-byte uncompressed point
//   - ECDSA_SECP256R1_SHA256: PKIX DER
//   - EDDSA_ED25519_SHA512: 32-byte key
type PublicKey struct {
	Scheme  SignatureScheme `json:"scheme" cbor:"1,keyasint"`
	Encoded hexutil.Bytes   `json:"encoded" cbor:"2,keyasint"`
}

// NewPublicKey checks that encoded is a valid key for scheme.
func NewPublicKey(scheme SignatureScheme, encoded []byte) (PublicKey, error) {
	pk := PublicKey{Scheme: scheme, Encoded: append([]byte(nil), encoded...)}
	if err := pk.Validate(); err != nil {
		return PublicKey{}, err
	}
	return pk, nil
}

func (pk PublicKey) Validate() error {
	switch pk.Scheme {
	case ECDSA_SECP256K1_KECCAK256:
		_, err := pk.secp256k1()
		return err
	case ECDSA_SECP256R1_SHA256:
		_, err := pk.p256()
		return err
	case EDDSA_ED25519_SHA512:
		if len(pk.Encoded) != ed25519.PublicKeySize {
			return fmt.Errorf("invalid ed25519 public key length %d", len(pk.Encoded))
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedScheme, pk.Scheme)
	}
}

func (pk PublicKey) IsEmpty() bool {
	return len(pk.Encoded) == 0
}

func (pk PublicKey) Equal(other PublicKey) bool {
	return pk.Scheme == other.Scheme && bytes.Equal(pk.Encoded, other.Encoded)
}

// Address is the Ethereum address of a secp256k1 key.
func (pk PublicKey) Address() (common.Address, error) {
	pub, err := pk.secp256k1()
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

func (pk PublicKey) String() string {
	return fmt.Sprintf("%s:%s", pk.Scheme, hexutil.Encode(pk.Encoded))
}

func (pk PublicKey) secp256k1() (*ecdsa.PublicKey, error) {
	if pk.Scheme != ECDSA_SECP256K1_KECCAK256 {
		return nil, fmt.Errorf("%s key is not a secp256k1 key", pk.Scheme)
	}
	pub, err := ethcrypto.UnmarshalPubkey(pk.Encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid secp256k1 public key: %w", err)
	}
	return pub, nil
}

func (pk PublicKey) p256() (*ecdsa.PublicKey, error) {
	parsed, err := x509.ParsePKIXPublicKey(pk.Encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid secp256r1 public key: %w", err)
	}
	pub, ok := parsed.(*ecdsa.PublicKey)
	if !ok || pub.Curve != elliptic.P256() {
		return nil, fmt.Errorf("invalid secp256r1 public key: not a P-256 key")
	}
	return pub, nil
}

// EncodeSecp256k1PublicKey encodes a secp256k1 point as used in PublicKey.
func EncodeSecp256k1PublicKey(pub *ecdsa.PublicKey) PublicKey {
	return PublicKey{Scheme: ECDSA_SECP256K1_KECCAK256, Encoded: ethcrypto.FromECDSAPub(pub)}
}

func EncodeP256PublicKey(pub *ecdsa.PublicKey) (PublicKey, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return PublicKey{}, fmt.Errorf("failed to encode P-256 public key: %w", err)
	}
	return PublicKey{Scheme: ECDSA_SECP256R1_SHA256, Encoded: der}, nil
}

func EncodeEd25519PublicKey(pub ed25519.PublicKey) PublicKey {
	return PublicKey{Scheme: EDDSA_ED25519_SHA512, Encoded: append([]byte(nil), pub...)}
}
