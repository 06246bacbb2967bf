package models

import (
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Variables carries the pipeline's key/value pairs. Values are opaque to the
// toolkit; platform macros like $(Build.BuildId) pass through unexpanded.
//
// Both platform forms are accepted: the map form and the list form with
// name/value entries. List entries referencing a variable group are recorded
// by name and left unresolved.
type Variables struct {
	Values map[string]string
	Groups []string

	Unknown []UnknownField
}

func (v Variables) IsZero() bool {
	return len(v.Values) == 0 && len(v.Groups) == 0
}

func (v Variables) Get(name string) (string, bool) {
	val, ok := v.Values[name]
	return val, ok
}

func (v *Variables) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		v.Values = make(map[string]string, len(value.Content)/2)
		for i := 0; i < len(value.Content)-1; i += 2 {
			key, val := value.Content[i], value.Content[i+1]
			if val.Kind != yaml.ScalarNode {
				return errors.Errorf("line %d: variable '%s' must have a scalar value", val.Line, key.Value)
			}
			v.Values[key.Value] = val.Value
		}
		return nil
	case yaml.SequenceNode:
		v.Values = make(map[string]string)
		for _, item := range value.Content {
			if item.Kind != yaml.MappingNode {
				return errors.Errorf("line %d: variable list entries must be maps", item.Line)
			}
			var name, val, group string
			for i := 0; i < len(item.Content)-1; i += 2 {
				k, entry := item.Content[i], item.Content[i+1]
				switch k.Value {
				case "name":
					name = entry.Value
				case "value":
					val = entry.Value
				case "group":
					group = entry.Value
				case "readonly":
					// Accepted for compatibility, not modeled.
				default:
					v.Unknown = append(v.Unknown, UnknownField{Key: k.Value, Line: k.Line})
				}
			}
			switch {
			case group != "":
				v.Groups = append(v.Groups, group)
			case name != "":
				v.Values[name] = val
			default:
				return errors.Errorf("line %d: variable entry must carry a name or a group", item.Line)
			}
		}
		return nil
	default:
		return errors.Errorf("line %d: variables must be a map or a list of name/value entries", value.Line)
	}
}

func (v Variables) MarshalYAML() (interface{}, error) {
	if len(v.Groups) == 0 {
		return v.Values, nil
	}
	entries := make([]map[string]string, 0, len(v.Groups)+len(v.Values))
	for _, g := range v.Groups {
		entries = append(entries, map[string]string{"group": g})
	}
	names := make([]string, 0, len(v.Values))
	for name := range v.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entries = append(entries, map[string]string{"name": name, "value": v.Values[name]})
	}
	return entries, nil
}
