package ecs

import (
	"encoding/json"
	"fmt"
)

// decodeConfig maps a config document mapping onto an AWS request struct through a JSON
// round trip. encoding/json matches the API's lowerCamel member names case-insensitively,
// so deployment configs use the same key names as the ECS API itself.
func decodeConfig(config map[string]any, target any) error {
	data, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("error encoding config mapping: %w", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("error mapping config onto %T: %w", target, err)
	}
	return nil
}

func decodeConfigSlice[T any](configs []map[string]any) ([]T, error) {
	if len(configs) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(configs)
	if err != nil {
		return nil, fmt.Errorf("error encoding config mappings: %w", err)
	}
	var decoded []T
	if err := json.Unmarshal(data, &decoded); err != nil {
		var t T
		return nil, fmt.Errorf("error mapping configs onto %T: %w", t, err)
	}
	return decoded, nil
}
