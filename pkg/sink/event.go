package sink

import (
	"time"

	"github.com/google/uuid"

	"github.com/posthog/hogtrace/pkg/bytecode"
)

// Event is one capture record as shipped to the ingest backend.
type Event struct {
	ID        string         `cbor:"id"`
	ProbeID   string         `cbor:"probe_id"`
	RequestID string         `cbor:"request_id"`
	Timestamp int64          `cbor:"ts_ns"`
	Values    map[string]any `cbor:"values"`
}

// Batch groups events for one delivery. SessionID identifies the host
// process lifetime; every batch a Client emits carries the same one.
type Batch struct {
	SessionID string   `cbor:"session_id"`
	Events    []*Event `cbor:"events"`
}

// NewEvent builds an event from a VM capture, downgrading VM values to
// plain Go values for encoding.
func NewEvent(probeID, requestID string, capture bytecode.Capture) *Event {
	values := make(map[string]any, len(capture.Values))
	for name, v := range capture.Values {
		values[name] = valueToGo(v)
	}
	return &Event{
		ID:        uuid.NewString(),
		ProbeID:   probeID,
		RequestID: requestID,
		Timestamp: time.Now().UnixNano(),
		Values:    values,
	}
}

// valueToGo lowers a VM value to an encodable Go value. Value containers
// are walked; opaque host objects degrade to their debug rendering since
// the wire cannot carry host references.
func valueToGo(v bytecode.Value) any {
	switch v.Kind() {
	case bytecode.KindNone:
		return nil
	case bytecode.KindBool:
		return v.Bool()
	case bytecode.KindInt:
		return v.Int()
	case bytecode.KindFloat:
		return v.Float()
	case bytecode.KindString:
		return v.Str()
	case bytecode.KindObject:
		switch container := v.Obj().(type) {
		case []bytecode.Value:
			out := make([]any, len(container))
			for i, e := range container {
				out[i] = valueToGo(e)
			}
			return out
		case map[string]bytecode.Value:
			out := make(map[string]any, len(container))
			for k, e := range container {
				out[k] = valueToGo(e)
			}
			return out
		case []any, map[string]any, nil:
			return container
		default:
			return v.String()
		}
	}
	return nil
}
