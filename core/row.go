package core

import (
	"fmt"
	"maps"
)

// Row is one record. ID is assigned by the owning table and starts at 1;
// zero means the row has no identity (projections, join output).
type Row struct {
	ID     int64          `json:"id,omitempty"`
	Fields map[string]any `json:"fields"`
}

// NewRow copies fields into a new row without an id.
func NewRow(fields map[string]any) Row {
	return Row{Fields: cloneFields(fields)}
}

// Get returns the value stored under name and whether the key is present.
func (r Row) Get(name string) (any, bool) {
	value, ok := r.Fields[name]
	return value, ok
}

// Value returns the value stored under name, nil when absent.
func (r Row) Value(name string) any {
	return r.Fields[name]
}

// Clone returns a copy of the row that shares no map with the original.
func (r Row) Clone() Row {
	return Row{ID: r.ID, Fields: cloneFields(r.Fields)}
}

func (r Row) String() string {
	return fmt.Sprintf("Row{ID: %d, Fields: %v}", r.ID, r.Fields)
}

func cloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return make(map[string]any)
	}
	return maps.Clone(fields)
}
