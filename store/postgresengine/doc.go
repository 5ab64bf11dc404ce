// Package postgresengine provides a PostgreSQL implementation of the store interfaces.
//
// It supports multiple database adapters (pgx, sql.DB via lib/pq, sqlx) behind one Store type.
//
// Key features:
//   - READ COMMITTED transactions with row locks (SELECT ... FOR UPDATE) for check-then-write sequences
//   - CHECK constraints that keep 0 <= available_stock <= total_stock in the database itself
//   - Duplicate keys reported as store.ErrDuplicateRecord, serialization failures and deadlocks
//     as store.ErrConcurrencyConflict
//   - Optional replica for eventually consistent reads (pgx only)
//   - Configurable table names, logging, metrics and tracing
//
// Usage examples:
//
//	db, _ := pgxpool.New(context.Background(), dsn)
//	s, _ := postgresengine.NewStoreFromPGXPool(db, postgresengine.WithLogger(slog.Default()))
//	_ = s.CreateSchema(ctx)
//
//	err := s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
//		book, err := tx.LockBook(ctx, bookID)
//		...
//	})
package postgresengine
