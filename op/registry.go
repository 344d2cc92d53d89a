package op

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/nickyhof/TableDB/core"
)

// Registry is the catalog of tables. Foreign keys are checked once, when the
// referencing table is created.
type Registry struct {
	name   string
	logger *slog.Logger

	mu     sync.RWMutex
	tables map[string]*Table
	order  []string
}

type RegistryOption func(*Registry)

func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRegistry(name string, opts ...RegistryOption) *Registry {
	registry := &Registry{
		name:   name,
		logger: slog.New(slog.DiscardHandler),
		tables: make(map[string]*Table),
	}
	for _, opt := range opts {
		opt(registry)
	}
	return registry
}

func (r *Registry) Name() string {
	return r.name
}

// CreateTable validates the column set, including every foreign key, and
// registers an empty table under name.
func (r *Registry) CreateTable(name string, columns []core.Column) (*Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.createTableLocked(name, columns)
}

// TableDef names a column set for CreateTables.
type TableDef struct {
	Name    string
	Columns []core.Column
}

// CreateTables registers defs in order, so later tables may reference earlier
// ones. Either every table is registered or none is.
func (r *Registry) CreateTables(defs []TableDef) ([]*Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tables := make([]*Table, 0, len(defs))
	for _, def := range defs {
		table, err := r.createTableLocked(def.Name, def.Columns)
		if err != nil {
			r.unregisterLocked(tables)
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, nil
}

func (r *Registry) unregisterLocked(tables []*Table) {
	for _, table := range tables {
		delete(r.tables, table.Name())
	}
	r.order = r.order[:len(r.order)-len(tables)]
}

func (r *Registry) createTableLocked(name string, columns []core.Column) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: table name is empty", core.ErrInvalidSchema)
	}
	if _, exists := r.tables[name]; exists {
		return nil, fmt.Errorf("%w: %s", core.ErrDuplicateTable, name)
	}

	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("%w: column name is empty in table %s", core.ErrInvalidSchema, name)
		}
		if seen[col.Name] {
			return nil, fmt.Errorf("%w: %s.%s", core.ErrDuplicateColumn, name, col.Name)
		}
		seen[col.Name] = true

		if err := r.checkForeignKeyLocked(name, col); err != nil {
			return nil, err
		}
	}

	table := newTable(name, columns)
	r.tables[name] = table
	r.order = append(r.order, name)

	r.logger.Debug("table created", "registry", r.name, "table", name, "columns", len(columns))
	return table, nil
}

func (r *Registry) checkForeignKeyLocked(table string, col core.Column) error {
	fk := col.ForeignKey
	if fk == nil {
		return nil
	}

	ref, ok := r.tables[fk.Table]
	if !ok {
		return fmt.Errorf("%w: %s referenced by %s.%s", core.ErrUnknownTable, fk.Table, table, col.Name)
	}
	refCol, ok := ref.Column(fk.Column)
	if !ok {
		return fmt.Errorf("%w: %s.%s referenced by %s.%s", core.ErrUnknownColumn, fk.Table, fk.Column, table, col.Name)
	}
	if !refCol.PrimaryKey {
		return fmt.Errorf("%w: %s.%s referenced by %s.%s", core.ErrNotPrimaryKey, fk.Table, fk.Column, table, col.Name)
	}
	return nil
}

// GetTable returns the live table registered under name.
func (r *Registry) GetTable(name string) (*Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	table, ok := r.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownTable, name)
	}
	return table, nil
}

// TableNames returns the registered table names, sorted.
func (r *Registry) TableNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tables returns the registered tables in creation order, so that every
// table appears after the tables its foreign keys reference.
func (r *Registry) Tables() []*Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tables := make([]*Table, 0, len(r.order))
	for _, name := range r.order {
		tables = append(tables, r.tables[name])
	}
	return tables
}
