package engine

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFlowFile reads a flow definition from a YAML or JSON file on disk,
// selecting the decoder by extension. YAML flows are bridged through
// encoding/json (yaml.v3 decodes mappings as map[string]any, which
// json.Marshal round-trips cleanly) so both formats share the one typed
// Step-union decode in ParseFlow.
func LoadFlowFile(path string) (*Flow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("engine: reading flow file %s: %w", path, err)
	}

	if isJSONFile(path) {
		return ParseFlow(raw)
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid flow YAML in %s", path), Cause: err}
	}
	bridged, err := json.Marshal(doc)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("flow YAML in %s could not be bridged to JSON", path), Cause: err}
	}
	return ParseFlow(bridged)
}

func isJSONFile(path string) bool {
	for i := len(path) - 1; i >= 0; i-- {
		switch path[i] {
		case '.':
			return path[i:] == ".json"
		case '/':
			return false
		}
	}
	return false
}
