package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataTypeValidate(t *testing.T) {
	tests := []struct {
		name     string
		dataType DataType
		value    any
		want     bool
	}{
		{"int accepts int", Integer(), 42, true},
		{"int accepts int64", Integer(), int64(-7), true},
		{"int accepts uint8", Integer(), uint8(3), true},
		{"int rejects float", Integer(), 1.5, false},
		{"int rejects bool", Integer(), true, false},
		{"int rejects string", Integer(), "1", false},
		{"string accepts string", String(), "hello", true},
		{"string rejects int", String(), 1, false},
		{"bounded string at limit", StringN(5), "hello", true},
		{"bounded string over limit", StringN(5), "hello!", false},
		{"bounded string counts runes", StringN(3), "héé", true},
		{"bool accepts bool", Boolean(), false, true},
		{"bool rejects int", Boolean(), 0, false},
		{"date accepts time", Date(), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), true},
		{"date accepts iso string", Date(), "2024-02-29", true},
		{"date rejects invalid day", Date(), "2023-02-29", false},
		{"date rejects other layout", Date(), "29/02/2024", false},
		{"date rejects int", Date(), 20240229, false},
		{"nil is never a type match", Integer(), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dataType.Validate(tt.value))
		})
	}
}

func TestParseColumnType(t *testing.T) {
	for _, tag := range []string{"int", "string", "bool", "date"} {
		ct, err := ParseColumnType(tag)
		require.NoError(t, err)
		assert.Equal(t, tag, ct.String())
	}

	_, err := ParseColumnType("float")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestColumnTypeText(t *testing.T) {
	text, err := DateType.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "date", string(text))

	var ct ColumnType
	require.NoError(t, ct.UnmarshalText([]byte("bool")))
	assert.Equal(t, BoolType, ct)

	assert.ErrorIs(t, ct.UnmarshalText([]byte("blob")), ErrUnknownType)
}

func TestDataTypeString(t *testing.T) {
	assert.Equal(t, "int", Integer().String())
	assert.Equal(t, "string(50)", StringN(50).String())
	assert.Equal(t, "string", String().String())
}
