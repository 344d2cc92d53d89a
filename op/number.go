package op

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
)

// Number is an aggregate result. It stays an exact integer while every
// contributing value is an integer and becomes a float64 otherwise.
type Number struct {
	integer *big.Int
	float   float64
}

func IntNumber(n int64) Number {
	return Number{integer: big.NewInt(n)}
}

func FloatNumber(f float64) Number {
	return Number{float: f}
}

// IsInteger reports whether n holds an exact integer.
func (n Number) IsInteger() bool {
	return n.integer != nil
}

// Int returns a copy of the integer value, or nil for a float Number.
func (n Number) Int() *big.Int {
	if n.integer == nil {
		return nil
	}
	return new(big.Int).Set(n.integer)
}

// Int64 returns the value when it is an integer within int64 range.
func (n Number) Int64() (int64, bool) {
	if n.integer == nil || !n.integer.IsInt64() {
		return 0, false
	}
	return n.integer.Int64(), true
}

// Float64 returns the nearest float64, rounding large integers.
func (n Number) Float64() float64 {
	if n.integer == nil {
		return n.float
	}
	f, _ := new(big.Float).SetInt(n.integer).Float64()
	return f
}

func (n Number) String() string {
	if n.integer != nil {
		return n.integer.String()
	}
	return strconv.FormatFloat(n.float, 'f', -1, 64)
}

// MarshalJSON writes integers digit for digit so no precision is lost.
func (n Number) MarshalJSON() ([]byte, error) {
	if n.integer != nil {
		return []byte(n.integer.String()), nil
	}
	return json.Marshal(n.float)
}

func (n *Number) UnmarshalJSON(data []byte) error {
	text := string(bytes.TrimSpace(data))
	if i, ok := new(big.Int).SetString(text, 10); ok {
		*n = Number{integer: i}
		return nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s: %w", text, err)
	}
	*n = FloatNumber(f)
	return nil
}

// bigInteger converts any Go integer kind.
func bigInteger(value any) (*big.Int, bool) {
	if i, ok := toInt64(value); ok {
		return big.NewInt(i), true
	}
	switch v := value.(type) {
	case uint:
		return new(big.Int).SetUint64(uint64(v)), true
	case uint64:
		return new(big.Int).SetUint64(v), true
	}
	return nil, false
}
