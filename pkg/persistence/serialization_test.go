package persistence_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/eigenx-txproof-go/pkg/persistence"
	"github.com/Layr-Labs/eigenx-txproof-go/pkg/persistence/persistencetest"
)

func TestMarshalUnmarshalBatchRecord_RoundTrip(t *testing.T) {
	original := persistencetest.NewBatchRecord(t, 4, time.Now())

	data, err := persistence.MarshalBatchRecord(original)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	restored, err := persistence.UnmarshalBatchRecord(data)
	require.NoError(t, err)
	persistencetest.AssertRecordEqual(t, original, restored)
	require.NoError(t, restored.Validate())
}

func TestMarshalBatchRecord_NilInput(t *testing.T) {
	_, err := persistence.MarshalBatchRecord(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil BatchRecord")
}

func TestUnmarshalBatchRecord_InvalidJSON(t *testing.T) {
	_, err := persistence.UnmarshalBatchRecord([]byte(`{"batchId": 5}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")

	_, err = persistence.UnmarshalBatchRecord(nil)
	require.Error(t, err)

	_, err = persistence.UnmarshalBatchRecord([]byte(`{"batchId":"x","root":"SHA-256:00"}`))
	require.Error(t, err, "short digest")
}

func TestCopyBatchRecord_IsDeep(t *testing.T) {
	original := persistencetest.NewBatchRecord(t, 2, time.Now())
	copied, err := persistence.CopyBatchRecord(original)
	require.NoError(t, err)

	copied.TxIDs[0] = copied.TxIDs[1]
	assert.NotEqual(t, original.TxIDs[0], copied.TxIDs[0])
}

func TestSortBatchRecords(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	records := []*persistence.BatchRecord{
		{BatchID: "c", CreatedAt: at.Add(time.Second)},
		{BatchID: "b", CreatedAt: at},
		{BatchID: "a", CreatedAt: at},
	}
	persistence.SortBatchRecords(records)
	assert.Equal(t, "a", records[0].BatchID)
	assert.Equal(t, "b", records[1].BatchID)
	assert.Equal(t, "c", records[2].BatchID)
}

func TestBatchRecordValidate(t *testing.T) {
	var nilRecord *persistence.BatchRecord
	require.Error(t, nilRecord.Validate())

	record := persistencetest.NewBatchRecord(t, 1, time.Now())
	require.NoError(t, record.Validate())

	record.Signature = nil
	require.Error(t, record.Validate())
}

func TestLatest(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	assert.Nil(t, persistence.Latest(nil))

	records := []*persistence.BatchRecord{
		{BatchID: "a", CreatedAt: at.Add(time.Second)},
		nil,
		{BatchID: "c", CreatedAt: at},
		{BatchID: "b", CreatedAt: at.Add(time.Second)},
	}
	assert.Equal(t, "b", persistence.Latest(records).BatchID)
}
