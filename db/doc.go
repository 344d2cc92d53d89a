// Package db executes JSON requests against a table registry.
//
// The Engine type is the main entry point. Each request names an op and the
// arguments it needs:
//
//	engine := db.NewEngine(registry, db.WithPersistence(persistence, identity))
//	result, err := engine.ExecuteJSON(ctx, []byte(`{"op":"select","table":"users"}`))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result.Display(os.Stdout)
//
// # Result Types
//
//   - QueryResult: get, select and join
//   - CommitResult: create_table, insert, update, delete and snapshot
//   - AggregateResult: count, sum and avg
//   - TablesResult, SchemaResult and HistoryResult: tables, describe and history
//
// Select and join results can also be exported as JSON lines to a local
// path or an s3:// URL through the request's into field.
package db
