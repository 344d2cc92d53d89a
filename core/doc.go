// Package core provides core types used throughout TableDB.
//
// The package defines the fundamental value types: DataType (the column
// type validator), Column, ForeignKey, Row, Identity, and the error
// taxonomy shared by every other package.
//
// # Identity
//
// Identity identifies the author of snapshots (Git commit author):
//
//	identity := core.Identity{
//	    Name:  "John Doe",
//	    Email: "john@example.com",
//	}
//
// # Column Types
//
// Supported column types:
//   - IntType: Go integers of any width, signed or unsigned
//   - StringType: strings, optionally bounded by a maximum rune count
//   - BoolType: booleans
//   - DateType: time.Time values or "YYYY-MM-DD" strings
//
// # Column Definition
//
//	columns := []core.Column{
//	    core.NewColumn("id", core.Integer(), core.NotNull(), core.PrimaryKey()),
//	    core.NewColumn("name", core.StringN(50), core.NotNull()),
//	    core.NewColumn("user_id", core.Integer(), core.References("users", "id")),
//	}
package core
