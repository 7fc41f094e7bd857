package provider

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ExtractValue normalizes a stat value from the shapes found in decoded JSON
// payloads: numbers, numeric strings, or nested {"total": n} objects.
//
// Returns the scalar float64 value, and ok=false if not extractable.
func ExtractValue(val interface{}) (float64, bool) {
	if val == nil {
		return 0, false
	}

	switch v := val.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, true
		}
		return 0, false
	case map[string]interface{}:
		for _, key := range []string{"total", "value"} {
			if inner, exists := v[key]; exists && inner != nil {
				return ExtractValue(inner)
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

// ExtractInt is ExtractValue truncated to an int pointer; nil when the value
// is missing or not a whole number.
func ExtractInt(val interface{}) *int {
	f, ok := ExtractValue(val)
	if !ok || f != math.Trunc(f) {
		return nil
	}
	n := int(f)
	return &n
}

// ParseShotSplit parses a "<made>-<attempted>" cell. Missing halves,
// non-numeric or negative values, and made > attempted all yield (nil, nil).
func ParseShotSplit(text string) (made, attempted *int) {
	parts := strings.Split(strings.TrimSpace(text), "-")
	if len(parts) != 2 {
		return nil, nil
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, nil
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, nil
	}
	if m < 0 || a < 0 || m > a {
		return nil, nil
	}
	return &m, &a
}

// ParseOptionalInt parses an integer cell such as "12", "+5" or "-3".
// Placeholders like "--" or "" yield nil.
func ParseOptionalInt(text string) *int {
	text = strings.TrimPrefix(strings.TrimSpace(text), "+")
	if text == "" {
		return nil
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return nil
	}
	return &n
}

// ParseOptionalFloat parses a decimal cell such as "46.7"; nil otherwise.
func ParseOptionalFloat(text string) *float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) {
		return nil
	}
	return &f
}

// ParseMinutes accepts "34", "34:12" and ISO-8601 durations like
// "PT34M12.00S", returning whole minutes played.
func ParseMinutes(text string) *int {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, "PT") {
		d, err := time.ParseDuration(strings.ToLower(strings.TrimPrefix(text, "PT")))
		if err != nil {
			return nil
		}
		m := int(d.Minutes())
		return &m
	}
	if mm, _, ok := strings.Cut(text, ":"); ok {
		return ParseOptionalInt(mm)
	}
	return ParseOptionalInt(text)
}

// DedupeLinks keeps the first occurrence of each link, preserving order.
func DedupeLinks(links []string) []string {
	seen := make(map[string]struct{}, len(links))
	out := make([]string, 0, len(links))
	for _, l := range links {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
