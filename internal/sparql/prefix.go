package sparql

import (
	"regexp"
	"strings"
)

// prefixPattern matches "PREFIX name <uri>" declarations, one per line.
var prefixPattern = regexp.MustCompile(`(?im)^\s*prefix\s+(.*?)\s+<(.*?)>\s*$`)

// PrefixBinding maps a short prefix name to the URI it abbreviates.
type PrefixBinding struct {
	Prefix string `koanf:"prefix" json:"prefix"`
	URI    string `koanf:"uri" json:"uri"`
}

// ParsePrefixes returns the PREFIX declarations found in query, in order of appearance.
func ParsePrefixes(query string) []PrefixBinding {
	matches := prefixPattern.FindAllStringSubmatch(query, -1)
	if len(matches) == 0 {
		return nil
	}

	bindings := make([]PrefixBinding, 0, len(matches))
	for _, m := range matches {
		bindings = append(bindings, PrefixBinding{Prefix: m[1], URI: m[2]})
	}
	return bindings
}

// MergePrefixes concatenates defaults and detected into a new slice.
// Defaults come first, so they win over query-local declarations during Abbreviate.
func MergePrefixes(defaults, detected []PrefixBinding) []PrefixBinding {
	merged := make([]PrefixBinding, 0, len(defaults)+len(detected))
	merged = append(merged, defaults...)
	merged = append(merged, detected...)
	return merged
}

// Abbreviate replaces the URI of the first binding that is a literal prefix of value
// with the binding's short name. Values with no matching binding are returned unchanged.
func Abbreviate(value string, bindings []PrefixBinding) string {
	for _, b := range bindings {
		if strings.HasPrefix(value, b.URI) {
			return b.Prefix + value[len(b.URI):]
		}
	}
	return value
}
