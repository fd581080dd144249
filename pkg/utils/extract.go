package utils

import (
	"strconv"
	"strings"
	"time"
)

// Raw provider records arrive as loosely-typed maps whose field names vary
// between vendors and API versions. The helpers below probe a fixed list of
// candidate keys in order and stop at the first structurally valid match,
// keeping response-shape tolerance out of the business rules.

// ExtractFloat returns the first numeric value found under the given keys.
func ExtractFloat(record map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		if f, ok := ToFloat(record[key]); ok {
			return f, true
		}
	}
	return 0, false
}

// ExtractString returns the first non-empty string value found under the
// given keys.
func ExtractString(record map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if s, ok := record[key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed, true
			}
		}
	}
	return "", false
}

// ExtractDate returns the first parseable date found under the given keys.
func ExtractDate(record map[string]any, keys ...string) (time.Time, bool) {
	for _, key := range keys {
		if s, ok := record[key].(string); ok {
			if t, ok := ParseDate(s); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// ExtractList unwraps a list of records from a decoded JSON payload. A bare
// list is returned as-is; otherwise the candidate container keys are probed
// in order. Non-map elements are dropped.
func ExtractList(payload any, keys ...string) []map[string]any {
	if items, ok := toRecordList(payload); ok {
		return items
	}
	if m, ok := payload.(map[string]any); ok {
		for _, key := range keys {
			if items, ok := toRecordList(m[key]); ok {
				return items
			}
		}
	}
	return nil
}

// ToFloat converts a decoded JSON scalar to float64. Integer types are
// widened and numeric strings are parsed; booleans are rejected.
func ToFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toRecordList(value any) ([]map[string]any, bool) {
	list, ok := value.([]any)
	if !ok {
		return nil, false
	}
	items := make([]map[string]any, 0, len(list))
	for _, el := range list {
		if m, ok := el.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items, true
}
