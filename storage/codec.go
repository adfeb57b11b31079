// Package storage provides the value codec for documents persisted in
// BadgerDB. Documents are encoded with CBOR Core Deterministic Encoding
// (RFC 8949 §4.2): the same logical document always produces identical
// bytes. Unknown fields are ignored on decode for forward compatibility.
package storage

import (
	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode
var decMode cbor.DecMode

func init() {
	var err error
	encOptions := cbor.CoreDetEncOptions()
	// Timestamps keep nanosecond precision so a document read back is
	// identical to the one stored.
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("storage: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("storage: CBOR decoder initialization failed: " + err.Error())
	}
}

func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
