// Package codec selects the wire encoding used for proof artifacts.
package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// MaxTreeDepth bounds the depth of a decoded partial Merkle tree. Leaf
// indices are read off the path as an int, so it stays below 63.
const MaxTreeDepth = 62

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to build CBOR encoding mode: %v", err))
	}
	// Every tree level is one nested CBOR map, plus room for the envelope.
	decMode, err = cbor.DecOptions{MaxNestedLevels: 2*MaxTreeDepth + 16}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to build CBOR decoding mode: %v", err))
	}
}

// CBOREncMode is the deterministic core encoding shared by every artifact.
func CBOREncMode() cbor.EncMode {
	return encMode
}

func CBORDecMode() cbor.DecMode {
	return decMode
}

func (f Format) String() string {
	return string(f)
}

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCBOR:
		return FormatCBOR, nil
	default:
		return "", fmt.Errorf("unsupported encoding format %q (expected json or cbor)", s)
	}
}

func Marshal(format Format, v any) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.Marshal(v)
	case FormatCBOR:
		return encMode.Marshal(v)
	default:
		return nil, fmt.Errorf("unsupported encoding format %q", format)
	}
}

func Unmarshal(format Format, data []byte, v any) error {
	switch format {
	case FormatJSON:
		return json.Unmarshal(data, v)
	case FormatCBOR:
		return decMode.Unmarshal(data, v)
	default:
		return fmt.Errorf("unsupported encoding format %q", format)
	}
}
