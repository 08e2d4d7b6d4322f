// Package crypto defines the signature schemes a transaction signature can
// be produced with and verifies signatures under them.
package crypto

import (
	"fmt"
	"strings"
)

// SignatureScheme identifies a key type together with the digest it signs.
// The numeric values are stable and appear in signature metadata.
type SignatureScheme int

const (
	SchemeUnknown             SignatureScheme = 0
	ECDSA_SECP256K1_KECCAK256 SignatureScheme = 2
	ECDSA_SECP256R1_SHA256    SignatureScheme = 3
	EDDSA_ED25519_SHA512      SignatureScheme = 4

	DefaultSignatureScheme = ECDSA_SECP256K1_KECCAK256
)

var schemeNames = map[SignatureScheme]string{
	ECDSA_SECP256K1_KECCAK256: "ECDSA_SECP256K1_KECCAK256",
	ECDSA_SECP256R1_SHA256:    "ECDSA_SECP256R1_SHA256",
	EDDSA_ED25519_SHA512:      "EDDSA_ED25519_SHA512",
}

// short aliases accepted on the command line and in env vars
var schemeAliases = map[string]SignatureScheme{
	"secp256k1": ECDSA_SECP256K1_KECCAK256,
	"ecdsa":     ECDSA_SECP256K1_KECCAK256,
	"secp256r1": ECDSA_SECP256R1_SHA256,
	"p256":      ECDSA_SECP256R1_SHA256,
	"ed25519":   EDDSA_ED25519_SHA512,
}

func (s SignatureScheme) String() string {
	if name, ok := schemeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// ID is the scheme number id carried in signature metadata.
func (s SignatureScheme) ID() int {
	return int(s)
}

func (s SignatureScheme) IsSupported() bool {
	_, ok := schemeNames[s]
	return ok
}

func (s SignatureScheme) MarshalText() ([]byte, error) {
	if !s.IsSupported() {
		return nil, fmt.Errorf("unsupported signature scheme %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *SignatureScheme) UnmarshalText(text []byte) error {
	parsed, err := ParseSignatureScheme(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSignatureScheme accepts a scheme name such as ECDSA_SECP256R1_SHA256 or
// one of the short aliases secp256k1, secp256r1, p256, ed25519.
func ParseSignatureScheme(s string) (SignatureScheme, error) {
	normalized := strings.TrimSpace(s)
	for scheme, name := range schemeNames {
		if strings.EqualFold(name, normalized) {
			return scheme, nil
		}
	}
	if scheme, ok := schemeAliases[strings.ToLower(normalized)]; ok {
		return scheme, nil
	}
	return SchemeUnknown, fmt.Errorf("unsupported signature scheme %q", s)
}

// SchemeFromID maps a scheme number id back to its scheme.
func SchemeFromID(id int) (SignatureScheme, error) {
	s := SignatureScheme(id)
	if !s.IsSupported() {
		return SchemeUnknown, fmt.Errorf("unsupported signature scheme id %d", id)
	}
	return s, nil
}
