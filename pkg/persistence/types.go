package persistence

import (
	"fmt"
	"sort"
	"time"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/digest"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/signature"
)

// BatchRecord is one signed notarisation batch.
type BatchRecord struct {
	// BatchID is a UUID assigned when the batch is signed
	BatchID string `json:"batchId"`

	// Root is the Merkle root over the rehashed transaction ids
	Root digest.SecureHash `json:"root"`

	// TxIDs are the batch's transaction ids in signing order
	TxIDs []digest.SecureHash `json:"txIds"`

	// Signature is the unattached signature over Root
	Signature *signature.TransactionSignature `json:"signature"`

	CreatedAt time.Time `json:"createdAt"`
}

func (r *BatchRecord) Validate() error {
	if r == nil {
		return fmt.Errorf("batch record is nil")
	}
	if r.BatchID == "" {
		return fmt.Errorf("batch record has no id")
	}
	if r.Root.IsEmpty() {
		return fmt.Errorf("batch %s has no root", r.BatchID)
	}
	if len(r.TxIDs) == 0 {
		return fmt.Errorf("batch %s has no transactions", r.BatchID)
	}
	if r.Signature == nil {
		return fmt.Errorf("batch %s has no signature", r.BatchID)
	}
	return nil
}

// SortBatchRecords orders records by CreatedAt, then BatchID.
func SortBatchRecords(records []*BatchRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].BatchID < records[j].BatchID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}

// Latest returns the record with the greatest CreatedAt, ties going to the
// greater BatchID. Nil entries are skipped.
func Latest(records []*BatchRecord) *BatchRecord {
	var latest *BatchRecord
	for _, r := range records {
		if r == nil {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) ||
			(r.CreatedAt.Equal(latest.CreatedAt) && r.BatchID > latest.BatchID) {
			latest = r
		}
	}
	return latest
}
