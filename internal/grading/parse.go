package grading

import (
	"strconv"
	"strings"
)

// ParseValue parses a numeric or time answer. Plain numbers parse as floats;
// colon-delimited values (mm:ss or h:mm:ss) are read as base-60 digits, most
// significant first, yielding total seconds. Unparsable input reports ok
// false instead of an error so a bad answer degrades to "no value".
func ParseValue(s string) (value float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if !strings.Contains(s, ":") {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	parts := strings.Split(s, ":")
	total := 0.0
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return 0, false
		}
		total = total*60 + v
	}
	return total, true
}

// NormalizeText canonicalizes a free-text answer for comparison: trimmed,
// internal whitespace collapsed, lowercased.
func NormalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
