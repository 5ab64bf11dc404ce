package config

import (
	"context"
	"fmt"

	"github.com/AntonStoeckl/library-circulation-go/store/postgresengine"
)

// OpenStore connects with the driver named by s.DatabaseAdapter and builds a postgresengine.Store on it.
// With a replica DSN the pgx store also gets a replica pool for eventually consistent reads.
// The returned close function releases the connection pools.
func OpenStore(ctx context.Context, s Settings, options ...postgresengine.Option) (*postgresengine.Store, func(), error) {
	switch s.DatabaseAdapter {
	case AdapterPGXPool:
		pool, err := NewPGXPool(ctx, s.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}

		if s.ReplicaDSN == "" {
			es, err := postgresengine.NewStoreFromPGXPool(pool, options...)
			if err != nil {
				pool.Close()
				return nil, nil, err
			}

			return es, pool.Close, nil
		}

		replica, err := NewPGXPool(ctx, s.ReplicaDSN)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}

		closeBoth := func() {
			replica.Close()
			pool.Close()
		}

		es, err := postgresengine.NewStoreFromPGXPoolWithReplica(pool, replica, options...)
		if err != nil {
			closeBoth()
			return nil, nil, err
		}

		return es, closeBoth, nil

	case AdapterSQLDB:
		db, err := NewSQLDB(ctx, s.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}

		es, err := postgresengine.NewStoreFromSQLDB(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return es, func() { _ = db.Close() }, nil

	case AdapterSQLX:
		db, err := NewSQLX(ctx, s.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}

		es, err := postgresengine.NewStoreFromSQLX(db, options...)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}

		return es, func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("%w: %s %q", ErrInvalidSetting, KeyDatabaseAdapter, s.DatabaseAdapter)
	}
}
