// Package adapters provide database adapter implementations for the PostgreSQL circulation store.
//
// This package implements the adapter pattern to support multiple PostgreSQL database libraries:
// pgx.Pool, sql.DB, and sqlx.DB. All adapters offer plain queries plus transactions through
// the common DBAdapter and DBTx interfaces, so the store works with any supported connection type.
package adapters
