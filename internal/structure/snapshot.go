package structure

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Decode parses a definition snapshot. YAML is used when yamlDoc is set,
// JSON otherwise. Wildcard references are rebuilt from the segments, and
// the result is validated.
func Decode(data []byte, yamlDoc bool) (Definition, error) {
	var d Definition
	var err error
	if yamlDoc {
		err = yaml.Unmarshal(data, &d)
	} else {
		err = json.Unmarshal(data, &d)
	}
	if err != nil {
		return Definition{}, fmt.Errorf("decoding structure: %w", err)
	}
	d.reindex()
	if err := d.Validate(); err != nil {
		return Definition{}, fmt.Errorf("decoding structure: %w", err)
	}
	return d, nil
}

// Encode serializes a definition snapshot.
func Encode(d Definition, yamlDoc bool) ([]byte, error) {
	if yamlDoc {
		return yaml.Marshal(d)
	}
	return json.MarshalIndent(d, "", "  ")
}

func isYAMLPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// ReadFile loads a definition from a JSON or YAML file.
func ReadFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("reading structure file: %w", err)
	}
	return Decode(data, isYAMLPath(path))
}

// WriteFile saves a definition to a JSON or YAML file.
func WriteFile(path string, d Definition) error {
	data, err := Encode(d, isYAMLPath(path))
	if err != nil {
		return fmt.Errorf("encoding structure: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing structure file: %w", err)
	}
	return nil
}
