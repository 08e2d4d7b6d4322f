package signer

import (
	"context"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/crypto"
)

// ISigner produces signatures over arbitrary bytes. Implementations apply the
// scheme's digest themselves, so callers always pass the full message.
type ISigner interface {
	Scheme() crypto.SignatureScheme
	Public() crypto.PublicKey
	Sign(ctx context.Context, data []byte) ([]byte, error)
}
