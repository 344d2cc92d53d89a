// Package ps persists registry snapshots in a git repository.
//
// Each call to SaveRegistry writes one commit. Inside the commit a registry
// named "shop" is laid out as
//
//	shop/users.table       schema, creation position and next row id
//	shop/users/rows.json   the rows, ids included
//
// # Memory Persistence
//
// For testing or ephemeral databases:
//
//	persistence, err := ps.NewMemoryPersistence()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # File Persistence
//
// A file-backed repository can be inspected and pushed with plain git:
//
//	persistence, err := ps.NewFilePersistence("/path/to/data", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	txn, err := persistence.SaveRegistry(registry, identity, "nightly")
//	registry, err = persistence.LoadRegistry("shop")
//
// Older snapshots stay reachable through TransactionsSince, LoadRegistryAt
// and Tag.
package ps
