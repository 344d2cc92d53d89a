package op

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/nickyhof/TableDB/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreateAndGet(t *testing.T) {
	registry := NewRegistry("shop")
	assert.Equal(t, "shop", registry.Name())

	users, err := registry.CreateTable("users", usersColumns())
	require.NoError(t, err)
	assert.Equal(t, "users", users.Name())
	assert.Zero(t, users.Len())

	got, err := registry.GetTable("users")
	require.NoError(t, err)
	assert.Same(t, users, got)
}

func TestRegistryErrors(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		columns []core.Column
		wantErr error
	}{
		{
			name:    "duplicate table",
			table:   "users",
			columns: usersColumns(),
			wantErr: core.ErrDuplicateTable,
		},
		{
			name:  "unknown referenced table",
			table: "payments",
			columns: []core.Column{
				core.NewColumn("invoice_id", core.Integer(), core.References("invoices", "id")),
			},
			wantErr: core.ErrUnknownTable,
		},
		{
			name:  "unknown referenced column",
			table: "orders",
			columns: []core.Column{
				core.NewColumn("user_id", core.Integer(), core.References("users", "uid")),
			},
			wantErr: core.ErrUnknownColumn,
		},
		{
			name:  "reference to non key column",
			table: "orders",
			columns: []core.Column{
				core.NewColumn("user_name", core.String(), core.References("users", "name")),
			},
			wantErr: core.ErrNotPrimaryKey,
		},
		{
			name:  "duplicate column",
			table: "tags",
			columns: []core.Column{
				core.NewColumn("label", core.String()),
				core.NewColumn("label", core.String()),
			},
			wantErr: core.ErrDuplicateColumn,
		},
		{
			name:    "empty table name",
			table:   "",
			columns: usersColumns(),
			wantErr: core.ErrInvalidSchema,
		},
		{
			name:    "empty column name",
			table:   "blank",
			columns: []core.Column{core.NewColumn("", core.Integer())},
			wantErr: core.ErrInvalidSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry("shop")
			_, err := registry.CreateTable("users", usersColumns())
			require.NoError(t, err)

			_, err = registry.CreateTable(tt.table, tt.columns)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.table != "users" {
				assert.Equal(t, []string{"users"}, registry.TableNames(), "failed create must not register")
			}
		})
	}
}

func TestRegistryGetUnknownTable(t *testing.T) {
	registry := NewRegistry("shop")
	_, err := registry.GetTable("ghosts")
	assert.ErrorIs(t, err, core.ErrUnknownTable)
}

func TestRegistryTableOrdering(t *testing.T) {
	registry, _, _ := setupUsersAndOrders(t)

	assert.Equal(t, []string{"orders", "users"}, registry.TableNames())

	var created []string
	for _, table := range registry.Tables() {
		created = append(created, table.Name())
	}
	assert.Equal(t, []string{"users", "orders"}, created)
}

func TestRegistryCreateTablesRollsBack(t *testing.T) {
	registry := NewRegistry("shop")
	_, err := registry.CreateTable("existing", []core.Column{core.NewColumn("id", core.Integer())})
	require.NoError(t, err)

	_, err = registry.CreateTables([]TableDef{
		{Name: "users", Columns: usersColumns()},
		{Name: "orders", Columns: ordersColumns()},
		{Name: "existing", Columns: usersColumns()},
	})
	assert.ErrorIs(t, err, core.ErrDuplicateTable)
	assert.Equal(t, []string{"existing"}, registry.TableNames())
	assert.Len(t, registry.Tables(), 1)

	tables, err := registry.CreateTables([]TableDef{
		{Name: "users", Columns: usersColumns()},
		{Name: "orders", Columns: ordersColumns()},
	})
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "orders", tables[1].Name())
}

func TestRegistryTablesAreIndependent(t *testing.T) {
	a := NewRegistry("a")
	b := NewRegistry("b")

	_, err := a.CreateTable("users", usersColumns())
	require.NoError(t, err)
	_, err = b.CreateTable("users", usersColumns())
	require.NoError(t, err, "registries share no catalog")
}

func TestRegistryLogsTableCreation(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	registry := NewRegistry("shop", WithLogger(logger))
	_, err := registry.CreateTable("users", usersColumns())
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "table created")
	assert.Contains(t, buf.String(), "table=users")
}
