package configutil

import (
	"sort"
	"strings"
)

// Schema lists the keys a provider accepts in its settings block.
type Schema struct {
	// Name prefixes validation errors, usually the provider name.
	Name         string
	Required     []string
	Optional     []string
	AllowUnknown bool
}

// SettingsError reports every offending key of one settings block at once.
type SettingsError struct {
	Provider string
	Missing  []string
	Unknown  []string
}

func (e *SettingsError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown: "+strings.Join(e.Unknown, ", "))
	}
	msg := strings.Join(parts, "; ")
	if e.Provider != "" {
		msg = e.Provider + " settings: " + msg
	}
	return msg
}

// ValidateSettings checks input against schema. Key matching ignores case,
// underscores and hyphens, the same way DecodeSettings does. The returned
// error is a *SettingsError.
func ValidateSettings(input map[string]any, schema Schema) error {
	known := make(map[string]bool, len(schema.Required)+len(schema.Optional))
	for _, k := range schema.Optional {
		known[normalizeKey(k)] = false
	}
	for _, k := range schema.Required {
		known[normalizeKey(k)] = true
	}

	present := make(map[string]bool, len(input))
	serr := &SettingsError{Provider: schema.Name}
	for k, v := range input {
		nk := normalizeKey(k)
		required, ok := known[nk]
		if !ok {
			if !schema.AllowUnknown {
				serr.Unknown = append(serr.Unknown, k)
			}
			continue
		}
		if required && isEmptyValue(v) {
			continue
		}
		present[nk] = true
	}
	for _, k := range schema.Required {
		if !present[normalizeKey(k)] {
			serr.Missing = append(serr.Missing, k)
		}
	}

	if len(serr.Missing) == 0 && len(serr.Unknown) == 0 {
		return nil
	}
	sort.Strings(serr.Missing)
	sort.Strings(serr.Unknown)
	return serr
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	}
	return false
}
