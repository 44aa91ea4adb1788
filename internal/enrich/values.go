package enrich

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// arrayOf returns the elements of r, or nil when r is not an array.
// gjson wraps non-array values in a one-element slice, which is never what
// the mapper wants.
func arrayOf(r gjson.Result) []gjson.Result {
	if !r.IsArray() {
		return nil
	}
	return r.Array()
}

func isNull(r gjson.Result) bool {
	return !r.Exists() || r.Type == gjson.Null
}

// optString returns nil for missing, null and empty values.
func optString(r gjson.Result) *string {
	if isNull(r) || r.IsObject() || r.IsArray() {
		return nil
	}
	s := r.String()
	if s == "" {
		return nil
	}
	return &s
}

// optFloat accepts JSON numbers and numeric strings. Values too large for a
// float64 saturate at ±math.MaxFloat64; NaN is dropped.
func optFloat(r gjson.Result) *float64 {
	var v float64
	switch r.Type {
	case gjson.Number:
		v = r.Float()
	case gjson.String:
		var err error
		v, err = strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil
		}
	default:
		return nil
	}
	switch {
	case math.IsNaN(v):
		return nil
	case math.IsInf(v, 1):
		v = math.MaxFloat64
	case math.IsInf(v, -1):
		v = -math.MaxFloat64
	}
	return &v
}

func optInt(r gjson.Result) *int {
	f := optFloat(r)
	if f == nil {
		return nil
	}
	v := saturateInt(*f)
	return &v
}

// saturateInt converts f to int, pinning out-of-range values at the bounds
// instead of letting the conversion wrap.
func saturateInt(f float64) int {
	switch {
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	}
	return int(f)
}
