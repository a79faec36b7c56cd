// Package migrations holds the goose migrations for the sessions and
// cache_entries tables. They are written in Go because column types and
// index syntax differ between sqlite, postgres and mysql.
package migrations

// dialect is the goose dialect the migrations render SQL for.
var dialect string

// SetDialect selects "sqlite3", "postgres" or "mysql". Call it before goose.Up.
func SetDialect(d string) {
	dialect = d
}
