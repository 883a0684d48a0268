// Package sqlite implements the store contracts on SQLite through the pure-Go
// modernc.org/sqlite driver. It backs local development and the end-to-end
// tests; production deployments use the postgres package.
package sqlite
