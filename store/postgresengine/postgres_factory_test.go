package postgresengine_test

import (
	"database/sql"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/library-circulation-go/store"
	"github.com/AntonStoeckl/library-circulation-go/store/postgresengine"
	"github.com/AntonStoeckl/library-circulation-go/testutil/postgreswrapper"
)

func Test_FactoryFunctions_Error_WhenConnectionIsNil(t *testing.T) {
	_, err := postgresengine.NewStoreFromPGXPool(nil)
	assert.ErrorIs(t, err, store.ErrNilDatabaseConnection)

	_, err = postgresengine.NewStoreFromPGXPoolWithReplica(nil, &pgxpool.Pool{})
	assert.ErrorIs(t, err, store.ErrNilDatabaseConnection)

	_, err = postgresengine.NewStoreFromSQLDB(nil)
	assert.ErrorIs(t, err, store.ErrNilDatabaseConnection)

	_, err = postgresengine.NewStoreFromSQLX(nil)
	assert.ErrorIs(t, err, store.ErrNilDatabaseConnection)
}

func Test_FactoryFunctions_Error_WhenAllTableNamesAreEmpty(t *testing.T) {
	// sql.Open does not connect, so no database is needed here
	db, err := sql.Open("postgres", postgreswrapper.TestDSN())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = postgresengine.NewStoreFromSQLDB(db, postgresengine.WithTableNames(postgresengine.TableNames{}))
	assert.ErrorIs(t, err, store.ErrEmptyTableName)

	_, err = postgresengine.NewStoreFromSQLX(sqlx.NewDb(db, "postgres"), postgresengine.WithTableNames(postgresengine.TableNames{}))
	assert.ErrorIs(t, err, store.ErrEmptyTableName)
}

func Test_FactoryFunctions_AcceptPartialTableNames(t *testing.T) {
	db, err := sql.Open("postgres", postgreswrapper.TestDSN())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := postgresengine.NewStoreFromSQLDB(db, postgresengine.WithTableNames(postgresengine.TableNames{Loans: "archived_loans"}))

	assert.NoError(t, err)
	assert.NotNil(t, s)
}
