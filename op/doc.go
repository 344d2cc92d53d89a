// Package op provides the in-memory relational operations of TableDB:
// tables, queries, joined views and the registry that owns them.
//
// The op package sits between the value types of core/ and the
// collaborators that expose or persist a registry (db/, ps/, cmd/).
//
// # Registry
//
// Registry is the catalog of tables. Foreign keys are validated once,
// structurally, when the referencing table is created:
//
//	registry := op.NewRegistry("shop")
//	users, err := registry.CreateTable("users", []core.Column{
//	    core.NewColumn("id", core.Integer(), core.NotNull(), core.PrimaryKey()),
//	    core.NewColumn("name", core.StringN(50), core.NotNull()),
//	})
//	orders, err := registry.CreateTableFromSchema("orders", schema)
//
// # Table
//
// Table validates every write against its columns and assigns ids:
//
//	row, err := users.Insert(map[string]any{"id": 1, "name": "Alice"})
//	row, ok := users.GetByID(row.ID)
//	row, err = users.Update(row.ID, map[string]any{"name": "Bob"})
//	deleted := users.Delete(row.ID)
//	rows := users.SelectAll()
//
// # Query
//
// Query filters, sorts, projects and aggregates any RowSource:
//
//	q := op.NewQuery(orders).Where("amount", op.Gt, 10).OrderBy("amount", false)
//	rows := q.Execute()
//	n := q.Count()
//	total, err := q.Sum("amount") // exact for integer columns
//
// # JoinedView
//
// JoinedView materializes an inner equality join; output fields are
// prefixed with their source table name:
//
//	view := op.NewJoinedView(users, orders, "id", "user_id")
//	for _, row := range view.Rows() {
//	    fmt.Println(row.Value("users.name"), row.Value("orders.amount"))
//	}
//
// # Architecture
//
// The layering is:
//
//	Servers / CLI (cmd/)
//	     ↓
//	Command engine (db/)     Snapshots (ps/)
//	     ↓                      ↓
//	Operations (op/)     ← This package
//	     ↓
//	Value types (core/)
package op
