package codec

import "encoding/json"

// JSON is the standard-library JSON codec.
//
// Notes:
//   - Structured values, maps and slices round-trip structurally.
//   - []byte does NOT round-trip: encoding/json emits base64 strings, and a
//     decode into `any` yields a string. Use Msgpack when collections hold
//     raw byte payloads.
//
// Offered for portability: JSON-encoded values are readable by anything.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }
