package op

import (
	"fmt"
	"maps"
	"sync"

	"github.com/nickyhof/TableDB/core"
)

// Table is an ordered collection of rows conforming to a fixed set of columns.
// It is safe for concurrent use; the lock guards rows and nextID together.
type Table struct {
	name    string
	columns []core.Column
	byName  map[string]int

	mu     sync.RWMutex
	rows   []core.Row
	nextID int64
}

func newTable(name string, columns []core.Column) *Table {
	table := &Table{
		name:    name,
		columns: make([]core.Column, len(columns)),
		byName:  make(map[string]int, len(columns)),
		nextID:  1,
	}
	copy(table.columns, columns)
	for i, col := range table.columns {
		table.byName[col.Name] = i
	}
	return table
}

func (t *Table) Name() string {
	return t.name
}

// Columns returns the schema in declaration order.
func (t *Table) Columns() []core.Column {
	columns := make([]core.Column, len(t.columns))
	copy(columns, t.columns)
	return columns
}

func (t *Table) Column(name string) (core.Column, bool) {
	i, ok := t.byName[name]
	if !ok {
		return core.Column{}, false
	}
	return t.columns[i], true
}

// PrimaryKey returns the first column flagged as primary key.
func (t *Table) PrimaryKey() (core.Column, bool) {
	for _, col := range t.columns {
		if col.PrimaryKey {
			return col, true
		}
	}
	return core.Column{}, false
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// NextID is the id the next successful Insert will assign.
func (t *Table) NextID() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nextID
}

// validateFields checks fields against every declared column. A missing key
// is treated as nil.
func (t *Table) validateFields(fields map[string]any) error {
	for name := range fields {
		if _, ok := t.byName[name]; !ok {
			return fmt.Errorf("%w: %s.%s", core.ErrUnknownColumn, t.name, name)
		}
	}
	for _, col := range t.columns {
		value := fields[col.Name]
		if !col.Validate(value) {
			return &core.ValidationError{Table: t.name, Column: col.Name, Value: value}
		}
	}
	return nil
}

// Insert validates fields and appends them as a new row with the next id.
func (t *Table) Insert(fields map[string]any) (core.Row, error) {
	if err := t.validateFields(fields); err != nil {
		return core.Row{}, err
	}

	row := core.NewRow(fields)

	t.mu.Lock()
	defer t.mu.Unlock()

	row.ID = t.nextID
	t.nextID++
	t.rows = append(t.rows, row)

	return row.Clone(), nil
}

func (t *Table) indexOf(id int64) int {
	for i, row := range t.rows {
		if row.ID == id {
			return i
		}
	}
	return -1
}

// GetByID returns a copy of the row with the given id.
func (t *Table) GetByID(id int64) (core.Row, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i := t.indexOf(id)
	if i < 0 {
		return core.Row{}, false
	}
	return t.rows[i].Clone(), true
}

// Update merges partial into the row with the given id. The merged result is
// validated as a whole before anything is written.
func (t *Table) Update(id int64, partial map[string]any) (core.Row, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 {
		return core.Row{}, fmt.Errorf("%w: %s id %d", core.ErrNotFound, t.name, id)
	}

	candidate := maps.Clone(t.rows[i].Fields)
	maps.Copy(candidate, partial)
	if err := t.validateFields(candidate); err != nil {
		return core.Row{}, err
	}

	t.rows[i].Fields = candidate
	return t.rows[i].Clone(), nil
}

// Delete removes the row with the given id and reports whether it existed.
func (t *Table) Delete(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 {
		return false
	}
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	return true
}

// SelectAll returns copies of all rows in insertion order.
func (t *Table) SelectAll() []core.Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *Table) snapshotLocked() []core.Row {
	rows := make([]core.Row, len(t.rows))
	for i, row := range t.rows {
		rows[i] = row.Clone()
	}
	return rows
}

// Restore replaces the table contents with rows previously read from the
// table, keeping their ids. Every row is validated and ids must be unique,
// ascending and below nextID. Nothing changes if any check fails.
func (t *Table) Restore(rows []core.Row, nextID int64) error {
	restored := make([]core.Row, 0, len(rows))
	var last int64
	for _, row := range rows {
		if row.ID <= last || row.ID >= nextID {
			return fmt.Errorf("%w: %s row id %d out of order or beyond next id %d",
				core.ErrInvalidSchema, t.name, row.ID, nextID)
		}
		if err := t.validateFields(row.Fields); err != nil {
			return err
		}
		last = row.ID
		restored = append(restored, row.Clone())
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = restored
	t.nextID = nextID
	return nil
}

func (t *Table) String() string {
	return fmt.Sprintf("Table{Name: %s, Rows: %d}", t.name, t.Len())
}
