// Package postgres implements the store contracts on PostgreSQL through the
// pgx database/sql driver, and maps PostgreSQL error codes onto the store
// error taxonomy.
package postgres
