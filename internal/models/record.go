package models

import "encoding/json"

// ToRecord converts a typed entity into the flat field map shape the
// document store persists.
func ToRecord(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// FromRecord decodes a stored field map into a typed entity.
func FromRecord(record map[string]any, v any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
