package op

import (
	"testing"

	"github.com/nickyhof/TableDB/core"
	"github.com/stretchr/testify/require"
)

func usersColumns() []core.Column {
	return []core.Column{
		core.NewColumn("id", core.Integer(), core.NotNull(), core.PrimaryKey()),
		core.NewColumn("name", core.StringN(50), core.NotNull()),
	}
}

func ordersColumns() []core.Column {
	return []core.Column{
		core.NewColumn("id", core.Integer(), core.NotNull(), core.PrimaryKey()),
		core.NewColumn("user_id", core.Integer(), core.NotNull(), core.References("users", "id")),
		core.NewColumn("amount", core.Integer(), core.NotNull()),
	}
}

// setupUsersAndOrders registers users(1 Alice, 2 Bob) and orders for user ids 1, 1, 2.
func setupUsersAndOrders(t *testing.T) (*Registry, *Table, *Table) {
	t.Helper()
	registry := NewRegistry("testdb")

	users, err := registry.CreateTable("users", usersColumns())
	require.NoError(t, err)
	orders, err := registry.CreateTable("orders", ordersColumns())
	require.NoError(t, err)

	for _, fields := range []map[string]any{
		{"id": 1, "name": "Alice"},
		{"id": 2, "name": "Bob"},
	} {
		_, err := users.Insert(fields)
		require.NoError(t, err)
	}
	for _, fields := range []map[string]any{
		{"id": 100, "user_id": 1, "amount": 50},
		{"id": 101, "user_id": 1, "amount": 70},
		{"id": 102, "user_id": 2, "amount": 30},
	} {
		_, err := orders.Insert(fields)
		require.NoError(t, err)
	}

	return registry, users, orders
}

func numbersTable(t *testing.T, values ...any) *Table {
	t.Helper()
	table := newTable("numbers", []core.Column{
		core.NewColumn("value", core.Integer()),
		core.NewColumn("label", core.String()),
	})
	for i, v := range values {
		_, err := table.Insert(map[string]any{"value": v, "label": string(rune('a' + i))})
		require.NoError(t, err)
	}
	return table
}
