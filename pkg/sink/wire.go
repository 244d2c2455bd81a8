package sink

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode is configured for canonical mode so equal batches always
// encode to identical bytes, which keeps the spool dedup-friendly.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("sink: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalEvent serializes an Event to CBOR bytes.
func MarshalEvent(e *Event) ([]byte, error) {
	return cborEncMode.Marshal(e)
}

// UnmarshalEvent deserializes an Event from CBOR bytes.
func UnmarshalEvent(data []byte) (*Event, error) {
	var e Event
	if err := cbor.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("sink: unmarshal event: %w", err)
	}
	return &e, nil
}

// MarshalBatch serializes a Batch to CBOR bytes.
func MarshalBatch(b *Batch) ([]byte, error) {
	return cborEncMode.Marshal(b)
}

// UnmarshalBatch deserializes a Batch from CBOR bytes.
func UnmarshalBatch(data []byte) (*Batch, error) {
	var b Batch
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("sink: unmarshal batch: %w", err)
	}
	return &b, nil
}
