// Package TableDB is a small in-process relational store with typed
// columns, primary and foreign keys, filtered and ordered queries, joins
// and git-backed snapshots.
//
// # Quick Start
//
//	registry := op.NewRegistry("shop")
//	users, _ := registry.CreateTable("users", []core.Column{
//	    core.NewColumn("id", core.Integer(), core.PrimaryKey(), core.NotNull()),
//	    core.NewColumn("name", core.StringN(40), core.NotNull()),
//	})
//	users.Insert(map[string]any{"id": 1, "name": "Alice"})
//
//	rows := op.NewQuery(users).Where("id", op.Eq, 1).Execute()
//
// # Instances
//
// Open wires a registry to its snapshot repository from a config.Config:
//
//	instance, _ := TableDB.Open(ctx, cfg, logger)
//	engine := instance.Engine(cfg.Identity)
//	engine.ExecuteJSON(ctx, []byte(`{"op":"insert","table":"users","fields":{"id":2,"name":"Bob"}}`))
//	instance.Snapshot("add bob")
//
// Every snapshot is a git commit; Push and Pull exchange them with a remote.
package TableDB
