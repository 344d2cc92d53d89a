package op

import (
	"cmp"
	"strings"
	"time"

	"github.com/nickyhof/TableDB/core"
)

// valueFamily groups Go values that are mutually comparable.
type valueFamily int

const (
	familyNull valueFamily = iota
	familyBool
	familyNumber
	familyString
	familyTime
	familyOther
)

func familyOf(value any) valueFamily {
	switch value.(type) {
	case nil:
		return familyNull
	case bool:
		return familyBool
	case string:
		return familyString
	case time.Time:
		return familyTime
	}
	if _, ok := toFloat(value); ok {
		return familyNumber
	}
	return familyOther
}

// toFloat converts any Go integer or float kind to float64.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// compareValues orders two values of the same family. ok is false when the
// values cannot be ordered against each other.
func compareValues(a, b any) (result int, ok bool) {
	fa, fb := familyOf(a), familyOf(b)
	if fa != fb || fa == familyNull || fa == familyOther {
		return 0, false
	}

	switch fa {
	case familyBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0, true
		case !ab:
			return -1, true
		default:
			return 1, true
		}
	case familyNumber:
		if core.IsInteger(a) && core.IsInteger(b) {
			if r, exact := compareIntegers(a, b); exact {
				return r, true
			}
		}
		af, _ := toFloat(a)
		bf, _ := toFloat(b)
		return cmp.Compare(af, bf), true
	case familyString:
		return strings.Compare(a.(string), b.(string)), true
	case familyTime:
		return a.(time.Time).Compare(b.(time.Time)), true
	}
	return 0, false
}

// compareIntegers compares two signed integers exactly, avoiding float rounding
// for large int64 values.
func compareIntegers(a, b any) (int, bool) {
	ai, aok := toInt64(a)
	bi, bok := toInt64(b)
	if !aok || !bok {
		return 0, false
	}
	return cmp.Compare(ai, bi), true
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	}
	return 0, false
}

// valuesEqual is equality as the query and join layers see it: nil equals
// only nil, numbers compare by value across widths, other families by ==.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if r, ok := compareValues(a, b); ok {
		return r == 0
	}
	return false
}

// sortCompare is a total order used by OrderBy: nil sorts first, then values
// by family, then by value within a family.
func sortCompare(a, b any) int {
	fa, fb := familyOf(a), familyOf(b)
	if fa != fb {
		return cmp.Compare(fa, fb)
	}
	if r, ok := compareValues(a, b); ok {
		return r
	}
	return 0
}
