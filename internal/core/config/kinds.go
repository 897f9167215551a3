package config

import (
	"fmt"
	"strings"
)

// Kinds is a list of grammar node kinds (or field names for projection
// roles). In TOML it may be written as a single string or as an array.
type Kinds []string

func (k *Kinds) UnmarshalTOML(v any) error {
	switch value := v.(type) {
	case string:
		*k = Kinds{value}
	case []any:
		out := make(Kinds, 0, len(value))
		for i, item := range value {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("element %d must be a string, got %T", i, item)
			}
			out = append(out, s)
		}
		*k = out
	default:
		return fmt.Errorf("expected string or array of strings, got %T", v)
	}
	return nil
}

// Contains reports whether kind is one of k.
func (k Kinds) Contains(kind string) bool {
	for _, candidate := range k {
		if candidate == kind {
			return true
		}
	}
	return false
}

func (k Kinds) String() string {
	return strings.Join(k, "|")
}

func (k Kinds) normalized() Kinds {
	out := make(Kinds, 0, len(k))
	seen := make(map[string]bool, len(k))
	for _, kind := range k {
		kind = strings.TrimSpace(kind)
		if kind == "" || seen[kind] {
			continue
		}
		seen[kind] = true
		out = append(out, kind)
	}
	return out
}
