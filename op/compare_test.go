package op

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompareValues(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := jan.AddDate(0, 1, 0)

	tests := []struct {
		name   string
		a, b   any
		want   int
		wantOK bool
	}{
		{"ints", 1, 2, -1, true},
		{"mixed widths", int64(3), uint8(3), 0, true},
		{"int and float", 2, 1.5, 1, true},
		{"large int64 exact", int64(math.MaxInt64), int64(math.MaxInt64 - 1), 1, true},
		{"strings", "b", "a", 1, true},
		{"bools", false, true, -1, true},
		{"dates", feb, jan, 1, true},
		{"nil", nil, 1, 0, false},
		{"nil nil", nil, nil, 0, false},
		{"string and int", "1", 1, 0, false},
		{"unsupported", []int{1}, []int{1}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := compareValues(tt.a, tt.b)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, valuesEqual(nil, nil))
	assert.False(t, valuesEqual(nil, 0))
	assert.False(t, valuesEqual("", nil))
	assert.True(t, valuesEqual(1, 1.0))
	assert.True(t, valuesEqual(int16(7), uint32(7)))
	assert.False(t, valuesEqual(1, "1"))
	assert.False(t, valuesEqual(true, 1))
}

func TestSortCompareIsTotal(t *testing.T) {
	ordered := []any{nil, false, true, -1, 2.5, 3, "a", "b", time.Unix(0, 0)}
	for i := range ordered {
		for j := range ordered {
			got := sortCompare(ordered[i], ordered[j])
			switch {
			case i < j:
				assert.Negative(t, got, "%v < %v", ordered[i], ordered[j])
			case i > j:
				assert.Positive(t, got, "%v > %v", ordered[i], ordered[j])
			default:
				assert.Zero(t, got)
			}
		}
	}
}
