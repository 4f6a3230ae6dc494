// Package queryir is the query representation for recorded simulation
// traces.
//
// A Query names a table of the trace log, the columns to return and a
// predicate over its columns. Backends (internal/querysql for SQLite)
// compile it; nothing here touches a database.
//
// Query and Predicate are sealed interfaces using the marker method
// pattern, so backends can switch over every variant exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case Compare:
//	case And:
//	}
//
// Field names are checked against the known columns by Validate before a
// backend interpolates them into SQL. Values are always parameters.
package queryir
