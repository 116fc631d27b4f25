package mcp

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Arguments holds the decoded arguments of a tool call. The accessors
// never fail: missing or mistyped values fall back to the given default.
type Arguments map[string]any

// String returns the trimmed string at key, or def when the value is
// missing, not a string or blank.
func (a Arguments) String(key, def string) string {
	s, ok := a[key].(string)
	if !ok {
		return def
	}
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

// Int returns the integer at key clamped to [lo, hi]. Numbers and numeric
// strings are accepted; fractional numbers are truncated. Anything else
// yields def.
func (a Arguments) Int(key string, def, lo, hi int) int {
	n, ok := toInt(a[key])
	if !ok {
		return def
	}
	return max(lo, min(hi, n))
}

// Bool returns the boolean at key. Strings such as "true", "yes" or "1"
// count as true; other strings as false. Other types yield def.
func (a Arguments) Bool(key string, def bool) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		}
		return false
	default:
		return def
	}
}

// OneOf returns the string at key if it is one of allowed, else def.
func (a Arguments) OneOf(key, def string, allowed ...string) string {
	s := a.String(key, def)
	if !slices.Contains(allowed, s) {
		return def
	}
	return s
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return clampInt64(i), true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case float64:
		return floatToInt(n)
	case int:
		return n, true
	case int64:
		return clampInt64(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	switch {
	case f >= math.MaxInt:
		return math.MaxInt, true
	case f <= math.MinInt:
		return math.MinInt, true
	}
	return int(f), true
}

func clampInt64(i int64) int {
	if i > math.MaxInt {
		return math.MaxInt
	}
	if i < math.MinInt {
		return math.MinInt
	}
	return int(i)
}
