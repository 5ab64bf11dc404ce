package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-circulation-go/shell/config"
	"github.com/AntonStoeckl/library-circulation-go/store/postgresengine"
)

const (
	envTestDSN        = "CIRCULATION_TEST_DSN"
	truncateStatement = "TRUNCATE TABLE loans, books, members, users"
)

// Wrapper abstracts over the different driver types.
type Wrapper interface {
	GetStore() *postgresengine.Store
	Close()
	exec(ctx context.Context, query string) error
}

// PGXPoolWrapper wraps pgxpool-based testing
type PGXPoolWrapper struct {
	pool *pgxpool.Pool
	s    *postgresengine.Store
}

func (w *PGXPoolWrapper) GetStore() *postgresengine.Store {
	return w.s
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

func (w *PGXPoolWrapper) exec(ctx context.Context, query string) error {
	_, err := w.pool.Exec(ctx, query)
	return err
}

// SQLDBWrapper wraps sql.DB-based testing
type SQLDBWrapper struct {
	db *sql.DB
	s  *postgresengine.Store
}

func (w *SQLDBWrapper) GetStore() *postgresengine.Store {
	return w.s
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

func (w *SQLDBWrapper) exec(ctx context.Context, query string) error {
	_, err := w.db.ExecContext(ctx, query)
	return err
}

// SQLXWrapper wraps sqlx.DB-based testing
type SQLXWrapper struct {
	db *sqlx.DB
	s  *postgresengine.Store
}

func (w *SQLXWrapper) GetStore() *postgresengine.Store {
	return w.s
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

func (w *SQLXWrapper) exec(ctx context.Context, query string) error {
	_, err := w.db.ExecContext(ctx, query)
	return err
}

// PGXReplicaWrapper wraps a store with a primary and a replica pgx pool.
type PGXReplicaWrapper struct {
	PGXPoolWrapper
	replica *pgxpool.Pool
}

func (w *PGXReplicaWrapper) Close() {
	w.replica.Close()
	w.PGXPoolWrapper.Close()
}

// ExecOnReplica runs a statement on the replica pool.
func (w *PGXReplicaWrapper) ExecOnReplica(ctx context.Context, query string) error {
	_, err := w.replica.Exec(ctx, query)
	return err
}

// TestDSN returns the DSN of the test database.
func TestDSN() string {
	if dsn := os.Getenv(envTestDSN); dsn != "" {
		return dsn
	}

	return config.DefaultDSN
}

// AdapterType returns the driver selected by ADAPTER_TYPE.
func AdapterType() string {
	adapter := strings.ToLower(os.Getenv("ADAPTER_TYPE"))
	if adapter == "" {
		return config.AdapterPGXPool
	}

	return adapter
}

// CreateWrapperWithTestConfig connects to the test database, creates the schema and empties all tables.
// It works on the default table names. The wrapper is closed when the test ends.
func CreateWrapperWithTestConfig(t testing.TB, options ...postgresengine.Option) Wrapper {
	t.Helper()

	ctx := context.Background()
	wrapper := Connect(ctx, t, options...)

	require.NoError(t, wrapper.GetStore().CreateSchema(ctx), "error creating the schema in test setup")
	CleanUp(t, wrapper)

	return wrapper
}

// Connect connects to the test database without touching the schema.
// The wrapper is closed when the test ends.
func Connect(ctx context.Context, t testing.TB, options ...postgresengine.Option) Wrapper {
	t.Helper()

	wrapper := connectWithAdapter(ctx, t, options...)
	t.Cleanup(wrapper.Close)

	return wrapper
}

func connectWithAdapter(ctx context.Context, t testing.TB, options ...postgresengine.Option) Wrapper {
	t.Helper()

	switch adapter := AdapterType(); adapter {
	case config.AdapterPGXPool:
		pool, err := config.NewPGXPool(ctx, TestDSN())
		skipWhenUnreachable(t, err)

		s, err := postgresengine.NewStoreFromPGXPool(pool, options...)
		require.NoError(t, err, "error creating the store")

		return &PGXPoolWrapper{pool: pool, s: s}

	case config.AdapterSQLDB:
		db, err := config.NewSQLDB(ctx, TestDSN())
		skipWhenUnreachable(t, err)

		s, err := postgresengine.NewStoreFromSQLDB(db, options...)
		require.NoError(t, err, "error creating the store")

		return &SQLDBWrapper{db: db, s: s}

	case config.AdapterSQLX:
		db, err := config.NewSQLX(ctx, TestDSN())
		skipWhenUnreachable(t, err)

		s, err := postgresengine.NewStoreFromSQLX(db, options...)
		require.NoError(t, err, "error creating the store")

		return &SQLXWrapper{db: db, s: s}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", adapter))
	}
}

// CreatePGXWrapperWithReplica builds a store on two pgx pools to the test database. The replica pool
// resolves tables in replicaSchema through its search_path, so both pools see separate, freshly emptied
// copies of the circulation tables. The wrapper is closed when the test ends.
func CreatePGXWrapperWithReplica(t testing.TB, replicaSchema string, options ...postgresengine.Option) *PGXReplicaWrapper {
	t.Helper()

	ctx := context.Background()

	pool, err := config.NewPGXPool(ctx, TestDSN())
	skipWhenUnreachable(t, err)

	_, err = pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+replicaSchema)
	if err != nil {
		pool.Close()
		require.NoError(t, err, "error creating the replica schema")
	}

	replica, err := config.NewPGXPool(ctx, withSearchPath(TestDSN(), replicaSchema))
	if err != nil {
		pool.Close()
		require.NoError(t, err, "error connecting the replica pool")
	}

	s, err := postgresengine.NewStoreFromPGXPoolWithReplica(pool, replica, options...)
	require.NoError(t, err, "error creating the store")

	wrapper := &PGXReplicaWrapper{PGXPoolWrapper: PGXPoolWrapper{pool: pool, s: s}, replica: replica}
	t.Cleanup(wrapper.Close)

	replicaStore, err := postgresengine.NewStoreFromPGXPool(replica)
	require.NoError(t, err, "error creating the replica store")
	require.NoError(t, replicaStore.CreateSchema(ctx), "error creating the replica tables")
	require.NoError(t, s.CreateSchema(ctx), "error creating the schema in test setup")

	CleanUp(t, wrapper)
	require.NoError(t, wrapper.ExecOnReplica(ctx, truncateStatement), "error cleaning up the replica tables")

	return wrapper
}

func withSearchPath(dsn, schema string) string {
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}

	return dsn + separator + "search_path=" + schema
}

func skipWhenUnreachable(t testing.TB, err error) {
	t.Helper()

	if err != nil {
		t.Skipf("postgres test database is not reachable: %v", err)
	}
}

// CleanUp empties the default tables.
func CleanUp(t testing.TB, wrapper Wrapper) {
	t.Helper()

	err := wrapper.exec(context.Background(), truncateStatement)
	require.NoError(t, err, "error cleaning up the tables")
}

// DropTables drops the given tables, used by tests that create them under custom names.
func DropTables(t testing.TB, wrapper Wrapper, tables ...string) {
	t.Helper()

	err := wrapper.exec(context.Background(), "DROP TABLE IF EXISTS "+strings.Join(tables, ", ")+" CASCADE")
	require.NoError(t, err, "error dropping the tables")
}
