package op

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/nickyhof/TableDB/core"
	"gopkg.in/yaml.v3"
)

// ColumnDescriptor is the declarative form of a column.
type ColumnDescriptor struct {
	Name       string   `yaml:"name" json:"name"`
	Type       string   `yaml:"type" json:"type"`
	Nullable   *bool    `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	PrimaryKey bool     `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
	MaxLength  *int     `yaml:"max_length,omitempty" json:"max_length,omitempty"`
	ForeignKey []string `yaml:"foreign_key,omitempty" json:"foreign_key,omitempty"`
}

// Schema is the declarative description of one table.
type Schema struct {
	Columns []ColumnDescriptor `yaml:"columns" json:"columns"`
}

// TableSchema is a named Schema inside a SchemaFile.
type TableSchema struct {
	Name    string             `yaml:"name" json:"name"`
	Columns []ColumnDescriptor `yaml:"columns" json:"columns"`
}

// SchemaFile declares several tables, applied in order.
type SchemaFile struct {
	Tables []TableSchema `yaml:"tables" json:"tables"`
}

// Column translates the descriptor into a core.Column.
func (d ColumnDescriptor) Column() (core.Column, error) {
	kind, err := core.ParseColumnType(d.Type)
	if err != nil {
		return core.Column{}, fmt.Errorf("column %s: %w", d.Name, err)
	}

	dataType := core.DataType{Kind: kind}
	if kind == core.StringType && d.MaxLength != nil {
		dataType = core.StringN(*d.MaxLength)
	}

	column := core.NewColumn(d.Name, dataType)
	if d.Nullable != nil {
		column.Nullable = *d.Nullable
	}
	column.PrimaryKey = d.PrimaryKey

	switch len(d.ForeignKey) {
	case 0:
	case 2:
		column.ForeignKey = &core.ForeignKey{Table: d.ForeignKey[0], Column: d.ForeignKey[1]}
	default:
		return core.Column{}, fmt.Errorf("%w: column %s: foreign_key needs [table, column], got %v",
			core.ErrInvalidSchema, d.Name, d.ForeignKey)
	}

	return column, nil
}

// ToColumns translates every descriptor, stopping at the first failure.
func (s Schema) ToColumns() ([]core.Column, error) {
	columns := make([]core.Column, 0, len(s.Columns))
	for _, d := range s.Columns {
		column, err := d.Column()
		if err != nil {
			return nil, err
		}
		columns = append(columns, column)
	}
	return columns, nil
}

// Describe is the inverse of Schema.ToColumns.
func Describe(columns []core.Column) Schema {
	schema := Schema{Columns: make([]ColumnDescriptor, 0, len(columns))}
	for _, col := range columns {
		nullable := col.Nullable
		d := ColumnDescriptor{
			Name:       col.Name,
			Type:       col.Type.Kind.String(),
			Nullable:   &nullable,
			PrimaryKey: col.PrimaryKey,
		}
		if col.Type.Kind == core.StringType && col.Type.MaxLength != nil {
			maxLength := *col.Type.MaxLength
			d.MaxLength = &maxLength
		}
		if col.ForeignKey != nil {
			d.ForeignKey = []string{col.ForeignKey.Table, col.ForeignKey.Column}
		}
		schema.Columns = append(schema.Columns, d)
	}
	return schema
}

// CreateTableFromSchema translates schema into columns and creates the table.
func (r *Registry) CreateTableFromSchema(name string, schema Schema) (*Table, error) {
	columns, err := schema.ToColumns()
	if err != nil {
		return nil, err
	}
	return r.CreateTable(name, columns)
}

// ApplySchemaFile creates every table in file, atomically.
func (r *Registry) ApplySchemaFile(file SchemaFile) ([]*Table, error) {
	defs := make([]TableDef, 0, len(file.Tables))
	for _, ts := range file.Tables {
		columns, err := Schema{Columns: ts.Columns}.ToColumns()
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", ts.Name, err)
		}
		defs = append(defs, TableDef{Name: ts.Name, Columns: columns})
	}
	return r.CreateTables(defs)
}

// ParseSchema decodes a single-table schema from YAML or JSON.
func ParseSchema(data []byte) (Schema, error) {
	var schema Schema
	if err := decodeStrict(data, &schema); err != nil {
		return Schema{}, err
	}
	return schema, nil
}

// ParseSchemaFile decodes a multi-table schema from YAML or JSON.
func ParseSchemaFile(data []byte) (SchemaFile, error) {
	var file SchemaFile
	if err := decodeStrict(data, &file); err != nil {
		return SchemaFile{}, err
	}
	return file, nil
}

func decodeStrict(data []byte, out any) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", core.ErrInvalidSchema, err)
	}
	return nil
}
