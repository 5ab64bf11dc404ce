// Package postgreswrapper builds PostgreSQL-backed stores for tests.
//
// The driver is picked by the ADAPTER_TYPE environment variable (pgx.pool, sql.db or sqlx.db, default pgx.pool)
// and the database by CIRCULATION_TEST_DSN. Tests are skipped when the database cannot be reached.
package postgreswrapper
