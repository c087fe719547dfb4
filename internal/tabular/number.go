package tabular

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// AsNumber reports the numeric value of v: numbers directly, numeric text
// via parsing. nil, "" and everything else are not numeric.
func AsNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		s := strings.TrimSpace(n)
		if s == "" || !numericPattern.MatchString(s) {
			return 0, false
		}
		return parseFloat(s)
	default:
		return 0, false
	}
}

// IsNumberKind reports whether v is held as a number rather than text.
func IsNumberKind(v any) bool {
	switch n := v.(type) {
	case float64:
		return !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32, int, int64, int32:
		return true
	default:
		return false
	}
}

// Label renders a cell for display: numbers without trailing zeros, nil as "".
func Label(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(n)
	default:
		if f, ok := AsNumber(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return fmt.Sprint(v)
	}
}
