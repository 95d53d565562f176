package persistence

import "encoding/json"

// EncodeValue serializes a value for storage. Contexts, trigger payloads,
// and step results are JSON-like by contract (they cross node boundaries
// as rendered templates and HTTP/provider responses), so JSON keeps stored
// rows inspectable and round-trips map[string]any without type
// registration.
func EncodeValue(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// DecodeValue deserializes data produced by EncodeValue into T.
func DecodeValue[T any](data []byte) (T, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, err
	}
	return v, nil
}
