package bus

import (
	"encoding/json"
	"fmt"
)

// EncodeMessage flattens a payload struct into the scalar map a stream entry
// carries. Payloads on the bus are flat JSON objects keyed by field name, so
// anything nested is rejected rather than silently mangled.
func EncodeMessage(data any) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("payload is not a JSON object: %w", err)
	}

	values := make(map[string]any, len(fields))
	for key, value := range fields {
		switch value.(type) {
		case string, float64, bool, nil:
			values[key] = value
		default:
			return nil, fmt.Errorf("field %q is not a scalar", key)
		}
	}
	return values, nil
}

// DecodeMessage rebuilds a payload struct from the flat value map of a
// stream entry.
func DecodeMessage(values map[string]any, out any) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal values: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}
