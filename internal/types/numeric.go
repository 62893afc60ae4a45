package types

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseNumericOrDefault converts value to a float64.
//
// Numbers are returned as-is. Strings are trimmed and may carry a trailing
// "%" or a "/scale" suffix ("8.5/10" yields 8.5). Everything else, including
// NaN and infinities, yields def.
func ParseNumericOrDefault(value any, def float64) float64 {
	var f float64
	switch v := value.(type) {
	case nil:
		return def
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		return parseNumericString(v.String(), def)
	case FlexString:
		return parseNumericString(string(v), def)
	case string:
		return parseNumericString(v, def)
	default:
		return def
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

func parseNumericString(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "/"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return def
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}
