package signature

import (
	"errors"
	"fmt"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/crypto"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
)

var (
	// ErrTransactionNotCovered means the signature was matched with the wrong
	// transaction: its partial tree does not include the transaction.
	ErrTransactionNotCovered = errors.New("signature does not cover this transaction")
	ErrAlreadyAttached       = errors.New("signature already carries a partial merkle tree")
	ErrSchemeMismatch        = errors.New("signature metadata does not match signer scheme")
)

// SignatureError reports a cryptographic failure for a transaction. It
// matches crypto.ErrSignatureVerification under errors.Is.
type SignatureError struct {
	TxID digest.SecureHash
	Err  error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("signature for transaction %s is invalid: %v", e.TxID, e.Err)
}

func (e *SignatureError) Unwrap() error {
	return e.Err
}

func (e *SignatureError) Is(target error) bool {
	return target == crypto.ErrSignatureVerification
}
