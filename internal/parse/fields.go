// Package parse reads the two source exports — Katapult spreadsheets or
// JSON and SPIDAcalc project JSON — and reduces them to the raw records the
// reconciliation engine consumes.
package parse

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var numericCleanRe = regexp.MustCompile(`[^0-9.\-]`)

// FieldValue returns the first non-nil value for any of the candidate
// column names: exact match first, then case-insensitive, then a fuzzy
// contains-match in either direction. The exporting systems do not agree
// on header spelling, so every lookup carries an ordered alias list.
func FieldValue(row map[string]any, options ...string) (any, bool) {
	if len(row) == 0 {
		return nil, false
	}

	// Sorted key order keeps fuzzy lookups deterministic across runs.
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, field := range options {
		if v, ok := row[field]; ok && v != nil {
			return v, true
		}

		lower := strings.ToLower(field)
		for _, key := range keys {
			if row[key] != nil && strings.ToLower(key) == lower {
				return row[key], true
			}
		}

		for _, key := range keys {
			if row[key] == nil {
				continue
			}
			lowerKey := strings.ToLower(key)
			if strings.Contains(lowerKey, lower) || strings.Contains(lower, lowerKey) {
				return row[key], true
			}
		}
	}

	return nil, false
}

// FieldString is FieldValue rendered as a trimmed string; "" when absent.
func FieldString(row map[string]any, options ...string) string {
	v, ok := FieldValue(row, options...)
	if !ok {
		return ""
	}
	return strings.TrimSpace(toString(v))
}

// FieldFloat is FieldValue coerced to a number; nil when absent or
// unparseable. Missing is distinct from zero.
func FieldFloat(row map[string]any, options ...string) *float64 {
	v, ok := FieldValue(row, options...)
	if !ok {
		return nil
	}
	return FloatValue(v)
}

// FloatValue coerces a raw cell value to a float, tolerating strings with
// units and wrapper objects carrying keys like "value" or "percent".
// Returns nil when nothing parseable is present.
func FloatValue(v any) *float64 {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		return &val
	case float32:
		f := float64(val)
		return &f
	case int:
		f := float64(val)
		return &f
	case int64:
		f := float64(val)
		return &f
	case string:
		cleaned := numericCleanRe.ReplaceAllString(val, "")
		if cleaned == "" {
			return nil
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		return &f
	case map[string]any:
		for _, key := range []string{"value", "percent", "percentage", "%", "load", "loading"} {
			if inner, ok := val[key]; ok {
				return FloatValue(inner)
			}
		}
		if len(val) == 1 {
			for _, inner := range val {
				return FloatValue(inner)
			}
		}
	}
	return nil
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	}
	return ""
}
