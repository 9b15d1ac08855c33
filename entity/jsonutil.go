package entity

import "encoding/json"

func marshalStringMap[V any](m map[string]V) ([]byte, error) {
	if m == nil {
		m = map[string]V{}
	}
	return json.Marshal(m)
}

func unmarshalStringMap[V any](data []byte) (map[string]V, error) {
	var m map[string]V
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
