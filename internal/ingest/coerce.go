package ingest

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numeralRe extracts the first signed decimal numeral in a string, ignoring
// any trailing unit suffix: "64.0%" -> "64.0", "990 hPa" -> "990".
var numeralRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Coerce converts an arbitrary decoded-JSON value into a finite float64.
// The second return is false when the value carries no usable number. It
// never panics: field devices and the JS simulator send numbers, numeric
// strings, unit-suffixed strings, nulls, and the occasional garbage, and all
// of it must pass through without taking the request down.
func Coerce(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case float32:
		return Coerce(float64(v))
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Coerce(v.String())
		}
		return Coerce(f)
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		match := numeralRe.FindString(s)
		if match == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(match, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
