package core

// ForeignKey is a structural reference to a primary-key column of another table.
type ForeignKey struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

type Column struct {
	Name       string      `json:"name"`
	Type       DataType    `json:"type"`
	Nullable   bool        `json:"nullable"`
	PrimaryKey bool        `json:"primaryKey"`
	ForeignKey *ForeignKey `json:"foreignKey,omitempty"`
}

// ColumnOption customizes a Column built by NewColumn.
type ColumnOption func(*Column)

// NotNull marks the column as rejecting nil values.
func NotNull() ColumnOption {
	return func(c *Column) { c.Nullable = false }
}

func PrimaryKey() ColumnOption {
	return func(c *Column) { c.PrimaryKey = true }
}

// References declares a foreign key to table.column.
func References(table, column string) ColumnOption {
	return func(c *Column) {
		c.ForeignKey = &ForeignKey{Table: table, Column: column}
	}
}

// NewColumn returns a nullable, non-key column of the given type.
func NewColumn(name string, dataType DataType, opts ...ColumnOption) Column {
	column := Column{
		Name:     name,
		Type:     dataType,
		Nullable: true,
	}
	for _, opt := range opts {
		opt(&column)
	}
	return column
}

// Validate reports whether value may be stored in the column.
func (c Column) Validate(value any) bool {
	if value == nil {
		return c.Nullable
	}
	return c.Type.Validate(value)
}
