package models

import (
	"path/filepath"
	"strings"
)

const (
	ConfigTypeYAML ConfigType = "yaml"
	ConfigTypeJSON ConfigType = "json"
	// ConfigTypeUnknown indicates that a file of an unknown type was found.
	ConfigTypeUnknown ConfigType = "unknown"
)

// ConfigType identifies the on-disk encoding of a pipeline file.
type ConfigType string

func (s ConfigType) Valid() bool {
	return s == ConfigTypeYAML || s == ConfigTypeJSON
}

func (s ConfigType) String() string {
	return string(s)
}

// ConfigTypeForPath infers the encoding from the file extension.
func ConfigTypeForPath(path string) ConfigType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return ConfigTypeYAML
	case ".json":
		return ConfigTypeJSON
	default:
		return ConfigTypeUnknown
	}
}
