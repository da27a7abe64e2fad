// Package postgres implements the repository contracts over PostgreSQL
// using pgx. Repositories take a database.DBTX so the same implementation
// runs against the pool or inside a transaction.
package postgres

import "strings"

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
