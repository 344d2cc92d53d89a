package core

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// DateLayout is the accepted textual form of a date value.
const DateLayout = time.DateOnly

type ColumnType int

const (
	IntType ColumnType = iota
	StringType
	BoolType
	DateType
)

var columnTypeTags = map[ColumnType]string{
	IntType:    "int",
	StringType: "string",
	BoolType:   "bool",
	DateType:   "date",
}

func (t ColumnType) String() string {
	if tag, ok := columnTypeTags[t]; ok {
		return tag
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

func (t ColumnType) MarshalText() ([]byte, error) {
	tag, ok := columnTypeTags[t]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}
	return []byte(tag), nil
}

func (t *ColumnType) UnmarshalText(text []byte) error {
	parsed, err := ParseColumnType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseColumnType maps a schema type tag (int, string, bool, date) to a ColumnType.
func ParseColumnType(tag string) (ColumnType, error) {
	for t, name := range columnTypeTags {
		if name == tag {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, tag)
}

// DataType is the type validator of a column. Kind selects the variant;
// MaxLength only applies to StringType and is ignored by the others.
type DataType struct {
	Kind      ColumnType `json:"kind"`
	MaxLength *int       `json:"max_length,omitempty"`
}

func Integer() DataType { return DataType{Kind: IntType} }

func String() DataType { return DataType{Kind: StringType} }

// StringN is a string type bounded to maxLength runes.
func StringN(maxLength int) DataType {
	return DataType{Kind: StringType, MaxLength: &maxLength}
}

func Boolean() DataType { return DataType{Kind: BoolType} }

func Date() DataType { return DataType{Kind: DateType} }

func (dt DataType) String() string {
	if dt.Kind == StringType && dt.MaxLength != nil {
		return fmt.Sprintf("string(%d)", *dt.MaxLength)
	}
	return dt.Kind.String()
}

// Validate reports whether value is acceptable for the type. A nil value is
// never acceptable here; nullability is the column's concern.
func (dt DataType) Validate(value any) bool {
	switch dt.Kind {
	case IntType:
		return IsInteger(value)
	case StringType:
		s, ok := value.(string)
		if !ok {
			return false
		}
		return dt.MaxLength == nil || utf8.RuneCountInString(s) <= *dt.MaxLength
	case BoolType:
		_, ok := value.(bool)
		return ok
	case DateType:
		switch v := value.(type) {
		case time.Time:
			return true
		case string:
			_, err := time.Parse(DateLayout, v)
			return err == nil
		}
		return false
	default:
		return false
	}
}

// IsInteger reports whether value holds a Go integer of any width.
func IsInteger(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}
