package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/AntonStoeckl/library-circulation-go/core"
	"github.com/AntonStoeckl/library-circulation-go/store"
	"github.com/AntonStoeckl/library-circulation-go/store/postgresengine/internal/adapters"
)

const (
	defaultBooksTable   = "books"
	defaultMembersTable = "members"
	defaultUsersTable   = "users"
	defaultLoansTable   = "loans"

	logMsgBuildQueryFailed    = "failed to build sql statement"
	logMsgDBQueryFailed       = "database query execution failed"
	logMsgDBExecFailed        = "database statement execution failed"
	logMsgCloseRowsFailed     = "failed to close database rows"
	logMsgScanRowFailed       = "failed to scan database row"
	logMsgRowsAffectedFailed  = "failed to get rows affected count"
	logMsgBeginTxFailed       = "failed to begin transaction"
	logMsgCommitFailed        = "failed to commit transaction"
	logMsgRollbackFailed      = "failed to roll back transaction"
	logMsgConcurrencyConflict = "concurrency conflict detected"
	logMsgDuplicateRecord     = "duplicate record rejected"
	logMsgSQLExecuted         = "executed sql for: "
	logMsgOperation           = "store operation: "
	logAttrError              = "error"
	logAttrQuery              = "query"
	logAttrDurationMS         = "duration_ms"
	logAttrAction             = "action"
	logAttrStatements         = "statement_count"
)

const (
	actionTransaction        = "transaction"
	actionRollback           = "rollback"
	actionCommit             = "commit"
	actionFindLoan           = "find_loan"
	actionFindLoans          = "find_loans"
	actionFindBook           = "find_book"
	actionFindMember         = "find_member"
	actionFindBookByISBN     = "find_book_by_isbn"
	actionFindMemberByNumber = "find_member_by_number"
	actionLockMember         = "lock_member"
	actionLockBook           = "lock_book"
	actionLockLoan           = "lock_loan"
	actionLoadUser           = "load_user"
	actionCountLoans         = "count_loans"
	actionInsertLoan         = "insert_loan"
	actionUpdateLoan         = "update_loan"
	actionUpdateStock        = "update_book_stock"
	actionInsertBook         = "insert_book"
	actionInsertMember       = "insert_member"
	actionInsertUser         = "insert_user"
	actionUpdateActive       = "update_member_active"
	actionCreateSchema       = "create_schema"
)

type tableNames struct {
	books   string
	members string
	users   string
	loans   string
}

func defaultTableNames() tableNames {
	return tableNames{
		books:   defaultBooksTable,
		members: defaultMembersTable,
		users:   defaultUsersTable,
		loans:   defaultLoansTable,
	}
}

func (t *tableNames) override(names TableNames) {
	if names.Books != "" {
		t.books = names.Books
	}

	if names.Members != "" {
		t.members = names.Members
	}

	if names.Users != "" {
		t.users = names.Users
	}

	if names.Loans != "" {
		t.loans = names.Loans
	}
}

// querier is what a statement runs against: the pool or a running transaction.
type querier interface {
	Query(ctx context.Context, query string) (adapters.DBRows, error)
	Exec(ctx context.Context, query string) (adapters.DBResult, error)
}

// Store is the PostgreSQL implementation of store.Store.
// It works with pgx pools, database/sql connections (lib/pq) and sqlx connections alike.
type Store struct {
	db               adapters.DBAdapter
	tables           tableNames
	logger           store.Logger
	metricsCollector store.MetricsCollector
	tracingCollector store.TracingCollector
	contextualLogger store.ContextualLogger
}

// NewStoreFromPGXPool creates a new Store using a pgx Pool with optional configuration.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, store.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(db), options...)
}

// NewStoreFromPGXPoolWithReplica creates a new Store using a primary and a replica pgx Pool.
// Reads made with store.WithEventualConsistency go to the replica, everything else to the primary.
func NewStoreFromPGXPoolWithReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, store.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapterWithReplica(db, replica), options...)
}

// NewStoreFromSQLDB creates a new Store using a sql.DB with optional configuration.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, store.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), options...)
}

// NewStoreFromSQLX creates a new Store using a sqlx.DB with optional configuration.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, store.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), options...)
}

func newStore(db adapters.DBAdapter, options ...Option) (*Store, error) {
	s := &Store{
		db:     db,
		tables: defaultTableNames(),
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// WithinTx implements store.Store.
//
// Transactions run with READ COMMITTED isolation. Rows read through the Lock* methods are locked with
// SELECT ... FOR UPDATE until the transaction ends. The transaction is rolled back when fn returns an
// error or panics; the error of fn is returned unchanged.
func (s *Store) WithinTx(ctx context.Context, fn store.TxFunc) error {
	observer, ctx := s.startTxObservation(ctx)

	dbTx, beginErr := s.db.BeginTx(ctx)
	if beginErr != nil {
		err := errors.Join(store.ErrBeginTxFailed, beginErr)
		s.logError(ctx, logMsgBeginTxFailed, beginErr)
		observer.finish(statusRolledBack, err)

		return err
	}

	finished := false
	defer func() {
		if finished {
			return
		}

		// fn panicked, the panic keeps propagating after the rollback
		s.rollback(ctx, dbTx)
		observer.finish(statusRolledBack, errTxPanicked)
	}()

	if err := fn(ctx, &pgTx{s: s, db: dbTx, observer: observer}); err != nil {
		finished = true
		s.rollback(ctx, dbTx)
		s.logOperation(ctx, actionRollback, logAttrError, err.Error(), logAttrStatements, observer.statements)
		observer.finish(statusRolledBack, err)

		return err
	}

	finished = true

	if commitErr := dbTx.Commit(ctx); commitErr != nil {
		err := wrapDriverError(store.ErrCommitFailed, commitErr)
		s.logDriverError(ctx, logMsgCommitFailed, actionCommit, err)
		observer.finish(statusRolledBack, err)

		return err
	}

	observer.finish(statusCommitted, nil)

	return nil
}

var errTxPanicked = errors.New("transaction function panicked")

func (s *Store) rollback(ctx context.Context, dbTx adapters.DBTx) {
	// the caller's context may already be canceled, the rollback must still reach the database
	if err := dbTx.Rollback(context.WithoutCancel(ctx)); err != nil {
		s.logWarn(ctx, logMsgRollbackFailed, errors.Join(store.ErrRollbackFailed, err))
	}
}

// FindLoanByID implements store.Reader.
func (s *Store) FindLoanByID(ctx context.Context, loanID uuid.UUID) (core.Loan, error) {
	sqlQuery, err := s.buildSelectLoanQuery(loanID, false)
	if err != nil {
		s.logError(ctx, logMsgBuildQueryFailed, err, logAttrAction, actionFindLoan)
		return core.Loan{}, err
	}

	return querySingle(ctx, s, s.reader(ctx), sqlQuery, actionFindLoan, scanLoan)
}

// FindLoans implements store.Reader.
func (s *Store) FindLoans(ctx context.Context, filter store.LoanFilter) ([]core.Loan, error) {
	sqlQuery, err := s.buildSelectLoansQuery(filter)
	if err != nil {
		s.logError(ctx, logMsgBuildQueryFailed, err, logAttrAction, actionFindLoans)
		return nil, err
	}

	return queryRows(ctx, s, s.reader(ctx), sqlQuery, actionFindLoans, scanLoan)
}

// FindBookByID implements store.Reader.
func (s *Store) FindBookByID(ctx context.Context, bookID uuid.UUID) (core.Book, error) {
	sqlQuery, err := s.buildSelectBookQuery(bookID, false)
	if err != nil {
		s.logError(ctx, logMsgBuildQueryFailed, err, logAttrAction, actionFindBook)
		return core.Book{}, err
	}

	return querySingle(ctx, s, s.reader(ctx), sqlQuery, actionFindBook, scanBook)
}

// FindMemberByID implements store.Reader.
func (s *Store) FindMemberByID(ctx context.Context, memberID uuid.UUID) (core.Member, error) {
	sqlQuery, err := s.buildSelectMemberQuery(memberID, false)
	if err != nil {
		s.logError(ctx, logMsgBuildQueryFailed, err, logAttrAction, actionFindMember)
		return core.Member{}, err
	}

	return querySingle(ctx, s, s.reader(ctx), sqlQuery, actionFindMember, scanMember)
}

// FindBookByISBN implements store.Reader.
func (s *Store) FindBookByISBN(ctx context.Context, isbn string) (core.Book, error) {
	sqlQuery, err := s.buildSelectBookByISBNQuery(isbn)
	if err != nil {
		s.logError(ctx, logMsgBuildQueryFailed, err, logAttrAction, actionFindBookByISBN)
		return core.Book{}, err
	}

	return querySingle(ctx, s, s.reader(ctx), sqlQuery, actionFindBookByISBN, scanBook)
}

// FindMemberByNumber implements store.Reader.
func (s *Store) FindMemberByNumber(ctx context.Context, memberNumber string) (core.Member, error) {
	sqlQuery, err := s.buildSelectMemberByNumberQuery(memberNumber)
	if err != nil {
		s.logError(ctx, logMsgBuildQueryFailed, err, logAttrAction, actionFindMemberByNumber)
		return core.Member{}, err
	}

	return querySingle(ctx, s, s.reader(ctx), sqlQuery, actionFindMemberByNumber, scanMember)
}

// reader picks the primary or, for eventually consistent reads, the replica.
func (s *Store) reader(ctx context.Context) querier {
	if store.GetConsistencyLevel(ctx) != store.EventualConsistency {
		return s.db
	}

	if replica, ok := s.db.(adapters.ReplicaQuerier); ok {
		return replicaReader{replica: replica, primary: s.db}
	}

	return s.db
}

type replicaReader struct {
	replica adapters.ReplicaQuerier
	primary adapters.DBAdapter
}

func (r replicaReader) Query(ctx context.Context, query string) (adapters.DBRows, error) {
	return r.replica.QueryReplica(ctx, query)
}

func (r replicaReader) Exec(ctx context.Context, query string) (adapters.DBResult, error) {
	return r.primary.Exec(ctx, query)
}

// exec runs DDL and other statements outside of a transaction.
func (s *Store) exec(ctx context.Context, sqlQuery string, action string) error {
	_, err := execStatement(ctx, s, s.db, sqlQuery, action)
	return err
}

// queryRows runs a select statement and scans every row with scan.
func queryRows[T any](
	ctx context.Context,
	s *Store,
	q querier,
	sqlQuery string,
	action string,
	scan func(rows adapters.DBRows) (T, error),
) ([]T, error) {

	start := time.Now()

	rows, queryErr := q.Query(ctx, sqlQuery)
	if queryErr != nil {
		err := wrapDriverError(store.ErrQueryFailed, queryErr)
		s.recordStatementMetrics(ctx, action, time.Since(start), err)
		s.logDriverError(ctx, logMsgDBQueryFailed, action, err, logAttrQuery, sqlQuery)

		return nil, err
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logWarn(ctx, logMsgCloseRowsFailed, closeErr, logAttrAction, action)
		}
	}()

	result := make([]T, 0)

	for rows.Next() {
		item, scanErr := scan(rows)
		if scanErr != nil {
			err := errors.Join(store.ErrScanningDBRowFailed, scanErr)
			s.recordStatementMetrics(ctx, action, time.Since(start), err)
			s.logError(ctx, logMsgScanRowFailed, scanErr, logAttrAction, action)

			return nil, err
		}

		result = append(result, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		err := wrapDriverError(store.ErrQueryFailed, rowsErr)
		s.recordStatementMetrics(ctx, action, time.Since(start), err)
		s.logDriverError(ctx, logMsgDBQueryFailed, action, err, logAttrQuery, sqlQuery)

		return nil, err
	}

	duration := time.Since(start)
	s.recordStatementMetrics(ctx, action, duration, nil)
	s.logQueryWithDuration(ctx, sqlQuery, action, duration)

	return result, nil
}

// querySingle is queryRows for lookups by primary key, it returns store.ErrRecordNotFound for zero rows.
func querySingle[T any](
	ctx context.Context,
	s *Store,
	q querier,
	sqlQuery string,
	action string,
	scan func(rows adapters.DBRows) (T, error),
) (T, error) {

	var empty T

	result, err := queryRows(ctx, s, q, sqlQuery, action, scan)
	if err != nil {
		return empty, err
	}

	if len(result) == 0 {
		return empty, fmt.Errorf("%w: %s", store.ErrRecordNotFound, action)
	}

	return result[0], nil
}

// execStatement runs a write statement and returns the number of affected rows.
func execStatement(ctx context.Context, s *Store, q querier, sqlQuery string, action string) (int64, error) {
	start := time.Now()

	result, execErr := q.Exec(ctx, sqlQuery)
	if execErr != nil {
		err := wrapDriverError(store.ErrExecFailed, execErr)
		s.recordStatementMetrics(ctx, action, time.Since(start), err)
		s.logDriverError(ctx, logMsgDBExecFailed, action, err, logAttrQuery, sqlQuery)

		return 0, err
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		err := errors.Join(store.ErrExecFailed, rowsAffectedErr)
		s.recordStatementMetrics(ctx, action, time.Since(start), err)
		s.logError(ctx, logMsgRowsAffectedFailed, rowsAffectedErr, logAttrAction, action)

		return 0, err
	}

	duration := time.Since(start)
	s.recordStatementMetrics(ctx, action, duration, nil)
	s.logQueryWithDuration(ctx, sqlQuery, action, duration)

	return rowsAffected, nil
}

// wrapDriverError joins a driver error with the matching store sentinel, or with base if it has none.
func wrapDriverError(base error, err error) error {
	if classified := classifyDriverError(err); classified != nil {
		return errors.Join(classified, err)
	}

	return errors.Join(base, err)
}

// logDriverError logs expected outcomes like duplicates and conflicts at info level and everything else as error.
func (s *Store) logDriverError(ctx context.Context, message string, action string, err error, args ...any) {
	switch {
	case errors.Is(err, store.ErrDuplicateRecord):
		s.logOperation(ctx, logMsgDuplicateRecord, append([]any{logAttrAction, action}, args...)...)
	case errors.Is(err, store.ErrConcurrencyConflict):
		s.logOperation(ctx, logMsgConcurrencyConflict, append([]any{logAttrAction, action}, args...)...)
	default:
		s.logError(ctx, message, err, append([]any{logAttrAction, action}, args...)...)
	}
}

func scanBook(rows adapters.DBRows) (core.Book, error) {
	var (
		book core.Book
		id   string
	)

	err := rows.Scan(
		&id, &book.ISBN, &book.Title, &book.Author, &book.Publisher,
		&book.PublicationYear, &book.Category, &book.AvailableStock, &book.TotalStock,
	)
	if err != nil {
		return core.Book{}, err
	}

	if book.ID, err = uuid.Parse(id); err != nil {
		return core.Book{}, err
	}

	return book, nil
}

func scanMember(rows adapters.DBRows) (core.Member, error) {
	var (
		member         core.Member
		id             string
		membershipType string
	)

	err := rows.Scan(
		&id, &member.MemberNumber, &member.FirstName, &member.LastName, &member.DocumentID,
		&member.Email, &member.Phone, &member.Address, &member.RegistrationDate, &member.Active, &membershipType,
	)
	if err != nil {
		return core.Member{}, err
	}

	if member.ID, err = uuid.Parse(id); err != nil {
		return core.Member{}, err
	}

	if member.MembershipType, err = core.ParseMembershipType(membershipType); err != nil {
		return core.Member{}, err
	}

	member.RegistrationDate = core.ToDate(member.RegistrationDate)

	return member, nil
}

func scanUser(rows adapters.DBRows) (core.User, error) {
	var (
		user core.User
		id   string
		role string
	)

	err := rows.Scan(&id, &user.Username, &user.FirstName, &user.LastName, &user.Email, &role, &user.Active)
	if err != nil {
		return core.User{}, err
	}

	if user.ID, err = uuid.Parse(id); err != nil {
		return core.User{}, err
	}

	if user.Role, err = core.ParseUserRole(role); err != nil {
		return core.User{}, err
	}

	return user, nil
}

func scanLoan(rows adapters.DBRows) (core.Loan, error) {
	var (
		loan                         core.Loan
		id, bookID, memberID, userID string
		status, penalty              string
		actualReturnDate             *time.Time
	)

	err := rows.Scan(
		&id, &bookID, &memberID, &userID,
		&loan.LoanDate, &loan.ExpectedReturnDate, &actualReturnDate,
		&status, &penalty, &loan.Notes,
	)
	if err != nil {
		return core.Loan{}, err
	}

	for _, pair := range []struct {
		dst *uuid.UUID
		src string
	}{
		{&loan.ID, id}, {&loan.BookID, bookID}, {&loan.MemberID, memberID}, {&loan.UserID, userID},
	} {
		if *pair.dst, err = uuid.Parse(pair.src); err != nil {
			return core.Loan{}, err
		}
	}

	if loan.Status, err = core.ParseLoanStatus(status); err != nil {
		return core.Loan{}, err
	}

	if loan.Penalty, err = decimal.NewFromString(penalty); err != nil {
		return core.Loan{}, err
	}

	loan.LoanDate = core.ToDate(loan.LoanDate)
	loan.ExpectedReturnDate = core.ToDate(loan.ExpectedReturnDate)

	if actualReturnDate != nil {
		returned := core.ToDate(*actualReturnDate)
		loan.ActualReturnDate = &returned
	}

	return loan, nil
}

func scanCount(rows adapters.DBRows) (int64, error) {
	var count int64
	err := rows.Scan(&count)

	return count, err
}
