package masking

import (
	"strings"
	"unicode"
)

const maskToken = "****"

// MaskPhone redacts a phone number while keeping the last four digits for support lookups.
func MaskPhone(value string) string {
	var digits strings.Builder
	for _, r := range strings.TrimSpace(value) {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if d == "" {
		return ""
	}
	if len(d) <= 4 {
		return maskToken
	}
	return maskToken + d[len(d)-4:]
}

// MaskFields returns a copy of input with the named keys masked at any depth.
func MaskFields(input map[string]any, keys ...string) map[string]any {
	if len(input) == 0 {
		return nil
	}
	sensitive := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		sensitive[strings.ToLower(k)] = struct{}{}
	}
	return maskMap(input, sensitive)
}

func maskMap(input map[string]any, sensitive map[string]struct{}) map[string]any {
	out := make(map[string]any, len(input))
	for key, value := range input {
		if _, ok := sensitive[strings.ToLower(key)]; ok {
			if s, isString := value.(string); isString {
				out[key] = MaskPhone(s)
				continue
			}
			out[key] = maskToken
			continue
		}
		out[key] = maskValue(value, sensitive)
	}
	return out
}

func maskValue(value any, sensitive map[string]struct{}) any {
	switch cast := value.(type) {
	case map[string]any:
		return maskMap(cast, sensitive)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, maskValue(item, sensitive))
		}
		return out
	default:
		return value
	}
}
