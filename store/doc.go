// Package store defines the persistence contract of the circulation core.
//
// A Store runs a function inside one atomic transaction (WithinTx) and offers plain reads outside of any
// transaction. Everything written through a Tx becomes visible together on commit or not at all.
//
// Implementations:
//   - postgresengine: PostgreSQL via pgx.Pool, sql.DB, or sqlx.DB, with row locks (SELECT ... FOR UPDATE)
//   - memengine: an in-memory engine with a store-wide transaction lock, used for tests and demos
//
// Errors returned by implementations are matched with errors.Is against the sentinels in this package.
// Every infrastructure failure matches ErrStorageFailure.
package store
