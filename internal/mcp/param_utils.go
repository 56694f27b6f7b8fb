package mcp

import "encoding/json"

// UnknownField is an argument the tool does not recognize
type UnknownField struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// collectUnknownFields parses raw JSON into a map, capturing any fields
// that aren't part of the known field set
func collectUnknownFields(data []byte, known map[string]struct{}) (map[string]json.RawMessage, []UnknownField, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}

	var unknown []UnknownField
	for key, value := range raw {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, decodeUnknownField(key, value))
		}
	}
	return raw, unknown, nil
}

func decodeUnknownField(name string, data json.RawMessage) UnknownField {
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		value = string(data)
	}
	return UnknownField{Name: name, Value: value}
}
