package postgresengine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-circulation-go/core"
	"github.com/AntonStoeckl/library-circulation-go/store"
	"github.com/AntonStoeckl/library-circulation-go/store/postgresengine/internal/adapters"
)

// pgTx implements store.Tx on top of a running database transaction.
type pgTx struct {
	s        *Store
	db       adapters.DBTx
	observer *txObserver
}

func (tx *pgTx) LockMember(ctx context.Context, memberID uuid.UUID) (core.Member, error) {
	sqlQuery, err := tx.s.buildSelectMemberQuery(memberID, true)
	if err != nil {
		return core.Member{}, tx.buildFailed(ctx, actionLockMember, err)
	}

	tx.observer.statementExecuted()

	return querySingle(ctx, tx.s, tx.db, sqlQuery, actionLockMember, scanMember)
}

func (tx *pgTx) LockBook(ctx context.Context, bookID uuid.UUID) (core.Book, error) {
	sqlQuery, err := tx.s.buildSelectBookQuery(bookID, true)
	if err != nil {
		return core.Book{}, tx.buildFailed(ctx, actionLockBook, err)
	}

	tx.observer.statementExecuted()

	return querySingle(ctx, tx.s, tx.db, sqlQuery, actionLockBook, scanBook)
}

func (tx *pgTx) LockLoan(ctx context.Context, loanID uuid.UUID) (core.Loan, error) {
	sqlQuery, err := tx.s.buildSelectLoanQuery(loanID, true)
	if err != nil {
		return core.Loan{}, tx.buildFailed(ctx, actionLockLoan, err)
	}

	tx.observer.statementExecuted()

	return querySingle(ctx, tx.s, tx.db, sqlQuery, actionLockLoan, scanLoan)
}

func (tx *pgTx) LoadUser(ctx context.Context, userID uuid.UUID) (core.User, error) {
	sqlQuery, err := tx.s.buildSelectUserQuery(userID)
	if err != nil {
		return core.User{}, tx.buildFailed(ctx, actionLoadUser, err)
	}

	tx.observer.statementExecuted()

	return querySingle(ctx, tx.s, tx.db, sqlQuery, actionLoadUser, scanUser)
}

func (tx *pgTx) CountLoansByMember(ctx context.Context, memberID uuid.UUID, statuses ...core.LoanStatus) (int, error) {
	sqlQuery, err := tx.s.buildCountLoansQuery(memberID, statuses)
	if err != nil {
		return 0, tx.buildFailed(ctx, actionCountLoans, err)
	}

	tx.observer.statementExecuted()

	count, err := querySingle(ctx, tx.s, tx.db, sqlQuery, actionCountLoans, scanCount)
	if err != nil {
		return 0, err
	}

	return int(count), nil
}

func (tx *pgTx) InsertLoan(ctx context.Context, loan core.Loan) error {
	sqlQuery, err := tx.s.buildInsertLoanQuery(loan)
	if err != nil {
		return tx.buildFailed(ctx, actionInsertLoan, err)
	}

	return tx.execExactlyOne(ctx, sqlQuery, actionInsertLoan)
}

func (tx *pgTx) UpdateLoan(ctx context.Context, loan core.Loan) error {
	sqlQuery, err := tx.s.buildUpdateLoanQuery(loan)
	if err != nil {
		return tx.buildFailed(ctx, actionUpdateLoan, err)
	}

	return tx.execExactlyOne(ctx, sqlQuery, actionUpdateLoan)
}

// UpdateBookStock writes the available stock. The table's CHECK constraint rejects values outside 0..total_stock.
func (tx *pgTx) UpdateBookStock(ctx context.Context, book core.Book) error {
	sqlQuery, err := tx.s.buildUpdateBookStockQuery(book)
	if err != nil {
		return tx.buildFailed(ctx, actionUpdateStock, err)
	}

	return tx.execExactlyOne(ctx, sqlQuery, actionUpdateStock)
}

func (tx *pgTx) InsertBook(ctx context.Context, book core.Book) error {
	sqlQuery, err := tx.s.buildInsertBookQuery(book)
	if err != nil {
		return tx.buildFailed(ctx, actionInsertBook, err)
	}

	return tx.execExactlyOne(ctx, sqlQuery, actionInsertBook)
}

func (tx *pgTx) InsertMember(ctx context.Context, member core.Member) error {
	sqlQuery, err := tx.s.buildInsertMemberQuery(member)
	if err != nil {
		return tx.buildFailed(ctx, actionInsertMember, err)
	}

	return tx.execExactlyOne(ctx, sqlQuery, actionInsertMember)
}

func (tx *pgTx) InsertUser(ctx context.Context, user core.User) error {
	sqlQuery, err := tx.s.buildInsertUserQuery(user)
	if err != nil {
		return tx.buildFailed(ctx, actionInsertUser, err)
	}

	return tx.execExactlyOne(ctx, sqlQuery, actionInsertUser)
}

func (tx *pgTx) UpdateMemberActive(ctx context.Context, memberID uuid.UUID, active bool) error {
	sqlQuery, err := tx.s.buildUpdateMemberActiveQuery(memberID, active)
	if err != nil {
		return tx.buildFailed(ctx, actionUpdateActive, err)
	}

	return tx.execExactlyOne(ctx, sqlQuery, actionUpdateActive)
}

// execExactlyOne runs a single-row write. Zero affected rows means the row vanished, which is a storage failure.
func (tx *pgTx) execExactlyOne(ctx context.Context, sqlQuery string, action string) error {
	tx.observer.statementExecuted()

	rowsAffected, err := execStatement(ctx, tx.s, tx.db, sqlQuery, action)
	if err != nil {
		return err
	}

	if rowsAffected != 1 {
		err = fmt.Errorf("%w: %s affected %d rows", store.ErrNoRowsAffected, action, rowsAffected)
		tx.s.logError(ctx, logMsgDBExecFailed, err, logAttrAction, action)

		return err
	}

	return nil
}

func (tx *pgTx) buildFailed(ctx context.Context, action string, err error) error {
	tx.s.logError(ctx, logMsgBuildQueryFailed, err, logAttrAction, action)
	return err
}
