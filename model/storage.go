package model

import (
	"encoding/json"
	"os"
)

// SaveModel serializes the model to an indented JSON file.
func SaveModel(m *Model, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadModel deserializes and validates a model from a JSON file.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalModel(data)
}

// MarshalModel serializes the model to JSON bytes.
func MarshalModel(m *Model) ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalModel deserializes a model from JSON bytes and validates its
// invariants.
func UnmarshalModel(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
