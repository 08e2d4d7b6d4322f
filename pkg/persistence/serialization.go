package persistence

import (
	"encoding/json"
	"fmt"
)

// MarshalBatchRecord serializes a BatchRecord to JSON bytes.
func MarshalBatchRecord(record *BatchRecord) ([]byte, error) {
	if record == nil {
		return nil, fmt.Errorf("cannot marshal nil BatchRecord")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal BatchRecord to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalBatchRecord deserializes a BatchRecord from JSON bytes.
func UnmarshalBatchRecord(data []byte) (*BatchRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var record BatchRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to BatchRecord: %w", err)
	}

	return &record, nil
}

// CopyBatchRecord returns a deep copy by round-tripping through JSON.
func CopyBatchRecord(record *BatchRecord) (*BatchRecord, error) {
	data, err := MarshalBatchRecord(record)
	if err != nil {
		return nil, err
	}
	return UnmarshalBatchRecord(data)
}
