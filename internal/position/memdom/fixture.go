package memdom

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LoadFile reads a snapshot fixture. Files ending in .json are decoded as
// JSON (the browser capture format), anything else as YAML.
func LoadFile(path string) (*schemas.LayoutSnapshot, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("could not resolve fixture path '%s': %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	if strings.EqualFold(filepath.Ext(expanded), ".json") {
		return DecodeJSON(data)
	}
	return DecodeYAML(data)
}

// DecodeJSON parses a snapshot in the browser capture format.
func DecodeJSON(data []byte) (*schemas.LayoutSnapshot, error) {
	var snap schemas.LayoutSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode JSON snapshot: %w", err)
	}
	return &snap, nil
}

// DecodeYAML parses a hand-written snapshot fixture.
func DecodeYAML(data []byte) (*schemas.LayoutSnapshot, error) {
	var snap schemas.LayoutSnapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode YAML snapshot: %w", err)
	}
	return &snap, nil
}
