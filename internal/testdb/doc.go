// Package testdb opens migrated databases for tests. SQLite databases live
// in the test's temporary directory and need no setup; PostgreSQL tests run
// only when SCRY_TEST_DATABASE_URL names a database they may wipe.
package testdb
