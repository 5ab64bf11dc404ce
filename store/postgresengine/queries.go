package postgresengine

import (
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-circulation-go/core"
	"github.com/AntonStoeckl/library-circulation-go/store"
)

const (
	dialectPostgres = "postgres"
	castText        = "TEXT"

	colID                 = "id"
	colISBN               = "isbn"
	colTitle              = "title"
	colAuthor             = "author"
	colPublisher          = "publisher"
	colPublicationYear    = "publication_year"
	colCategory           = "category"
	colAvailableStock     = "available_stock"
	colTotalStock         = "total_stock"
	colMemberNumber       = "member_number"
	colFirstName          = "first_name"
	colLastName           = "last_name"
	colDocumentID         = "document_id"
	colEmail              = "email"
	colPhone              = "phone"
	colAddress            = "address"
	colRegistrationDate   = "registration_date"
	colActive             = "active"
	colMembershipType     = "membership_type"
	colUsername           = "username"
	colRole               = "role"
	colBookID             = "book_id"
	colMemberID           = "member_id"
	colUserID             = "user_id"
	colLoanDate           = "loan_date"
	colExpectedReturnDate = "expected_return_date"
	colActualReturnDate   = "actual_return_date"
	colStatus             = "status"
	colPenalty            = "penalty"
	colNotes              = "notes"
	aliasCount            = "cnt"
)

type sqlQueryString = string

func dialect() goqu.DialectWrapper {
	return goqu.Dialect(dialectPostgres)
}

// asText casts a column to text, which every supported driver scans into a string.
func asText(col string) exp.CastExpression {
	return goqu.Cast(goqu.C(col), castText)
}

func dateLiteral(t time.Time) string {
	return core.ToDate(t).Format(time.DateOnly)
}

func nullableDateLiteral(t *time.Time) any {
	if t == nil {
		return nil
	}

	return dateLiteral(*t)
}

func toSQL(ds interface {
	ToSQL() (string, []any, error)
}) (sqlQueryString, error) {
	sqlQuery, _, err := ds.ToSQL()
	if err != nil {
		return "", errors.Join(store.ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}

// --- books ---

func (s *Store) selectBooks() *goqu.SelectDataset {
	return dialect().
		From(s.tables.books).
		Select(
			asText(colID), colISBN, colTitle, colAuthor, colPublisher,
			colPublicationYear, colCategory, colAvailableStock, colTotalStock,
		)
}

func (s *Store) buildSelectBookQuery(bookID uuid.UUID, forUpdate bool) (sqlQueryString, error) {
	ds := s.selectBooks().Where(goqu.C(colID).Eq(bookID.String()))
	if forUpdate {
		ds = ds.ForUpdate(exp.Wait)
	}

	return toSQL(ds)
}

func (s *Store) buildSelectBookByISBNQuery(isbn string) (sqlQueryString, error) {
	return toSQL(s.selectBooks().Where(goqu.C(colISBN).Eq(isbn)))
}

func (s *Store) buildInsertBookQuery(book core.Book) (sqlQueryString, error) {
	return toSQL(dialect().Insert(s.tables.books).Rows(goqu.Record{
		colID:              book.ID.String(),
		colISBN:            book.ISBN,
		colTitle:           book.Title,
		colAuthor:          book.Author,
		colPublisher:       book.Publisher,
		colPublicationYear: book.PublicationYear,
		colCategory:        book.Category,
		colAvailableStock:  book.AvailableStock,
		colTotalStock:      book.TotalStock,
	}))
}

func (s *Store) buildUpdateBookStockQuery(book core.Book) (sqlQueryString, error) {
	return toSQL(dialect().
		Update(s.tables.books).
		Set(goqu.Record{colAvailableStock: book.AvailableStock}).
		Where(goqu.C(colID).Eq(book.ID.String())))
}

// --- members ---

func (s *Store) selectMembers() *goqu.SelectDataset {
	return dialect().
		From(s.tables.members).
		Select(
			asText(colID), colMemberNumber, colFirstName, colLastName, colDocumentID,
			colEmail, colPhone, colAddress, colRegistrationDate, colActive, colMembershipType,
		)
}

func (s *Store) buildSelectMemberQuery(memberID uuid.UUID, forUpdate bool) (sqlQueryString, error) {
	ds := s.selectMembers().Where(goqu.C(colID).Eq(memberID.String()))
	if forUpdate {
		ds = ds.ForUpdate(exp.Wait)
	}

	return toSQL(ds)
}

func (s *Store) buildSelectMemberByNumberQuery(memberNumber string) (sqlQueryString, error) {
	return toSQL(s.selectMembers().Where(goqu.C(colMemberNumber).Eq(memberNumber)))
}

func (s *Store) buildInsertMemberQuery(member core.Member) (sqlQueryString, error) {
	return toSQL(dialect().Insert(s.tables.members).Rows(goqu.Record{
		colID:               member.ID.String(),
		colMemberNumber:     member.MemberNumber,
		colFirstName:        member.FirstName,
		colLastName:         member.LastName,
		colDocumentID:       member.DocumentID,
		colEmail:            member.Email,
		colPhone:            member.Phone,
		colAddress:          member.Address,
		colRegistrationDate: dateLiteral(member.RegistrationDate),
		colActive:           member.Active,
		colMembershipType:   string(member.MembershipType),
	}))
}

func (s *Store) buildUpdateMemberActiveQuery(memberID uuid.UUID, active bool) (sqlQueryString, error) {
	return toSQL(dialect().
		Update(s.tables.members).
		Set(goqu.Record{colActive: active}).
		Where(goqu.C(colID).Eq(memberID.String())))
}

// --- users ---

func (s *Store) buildSelectUserQuery(userID uuid.UUID) (sqlQueryString, error) {
	return toSQL(dialect().
		From(s.tables.users).
		Select(asText(colID), colUsername, colFirstName, colLastName, colEmail, colRole, colActive).
		Where(goqu.C(colID).Eq(userID.String())))
}

func (s *Store) buildInsertUserQuery(user core.User) (sqlQueryString, error) {
	return toSQL(dialect().Insert(s.tables.users).Rows(goqu.Record{
		colID:        user.ID.String(),
		colUsername:  user.Username,
		colFirstName: user.FirstName,
		colLastName:  user.LastName,
		colEmail:     user.Email,
		colRole:      string(user.Role),
		colActive:    user.Active,
	}))
}

// --- loans ---

func (s *Store) selectLoans() *goqu.SelectDataset {
	return dialect().
		From(s.tables.loans).
		Select(
			asText(colID), asText(colBookID), asText(colMemberID), asText(colUserID),
			colLoanDate, colExpectedReturnDate, colActualReturnDate,
			colStatus, asText(colPenalty), colNotes,
		)
}

func (s *Store) buildSelectLoanQuery(loanID uuid.UUID, forUpdate bool) (sqlQueryString, error) {
	ds := s.selectLoans().Where(goqu.C(colID).Eq(loanID.String()))
	if forUpdate {
		ds = ds.ForUpdate(exp.Wait)
	}

	return toSQL(ds)
}

func (s *Store) buildSelectLoansQuery(filter store.LoanFilter) (sqlQueryString, error) {
	ds := s.selectLoans().
		Where(loanFilterExpressions(filter)...).
		Order(goqu.C(colLoanDate).Desc(), goqu.C(colID).Asc())

	return toSQL(ds)
}

func (s *Store) buildCountLoansQuery(memberID uuid.UUID, statuses []core.LoanStatus) (sqlQueryString, error) {
	ds := dialect().
		From(s.tables.loans).
		Select(goqu.COUNT(goqu.Star()).As(aliasCount)).
		Where(loanFilterExpressions(store.LoanFilter{MemberID: memberID, Statuses: statuses})...)

	return toSQL(ds)
}

func (s *Store) buildInsertLoanQuery(loan core.Loan) (sqlQueryString, error) {
	return toSQL(dialect().Insert(s.tables.loans).Rows(goqu.Record{
		colID:                 loan.ID.String(),
		colBookID:             loan.BookID.String(),
		colMemberID:           loan.MemberID.String(),
		colUserID:             loan.UserID.String(),
		colLoanDate:           dateLiteral(loan.LoanDate),
		colExpectedReturnDate: dateLiteral(loan.ExpectedReturnDate),
		colActualReturnDate:   nullableDateLiteral(loan.ActualReturnDate),
		colStatus:             string(loan.Status),
		colPenalty:            loan.Penalty.String(),
		colNotes:              loan.Notes,
	}))
}

func (s *Store) buildUpdateLoanQuery(loan core.Loan) (sqlQueryString, error) {
	return toSQL(dialect().
		Update(s.tables.loans).
		Set(goqu.Record{
			colExpectedReturnDate: dateLiteral(loan.ExpectedReturnDate),
			colActualReturnDate:   nullableDateLiteral(loan.ActualReturnDate),
			colStatus:             string(loan.Status),
			colPenalty:            loan.Penalty.String(),
			colNotes:              loan.Notes,
		}).
		Where(goqu.C(colID).Eq(loan.ID.String())))
}

func loanFilterExpressions(filter store.LoanFilter) []exp.Expression {
	expressions := make([]exp.Expression, 0)

	if filter.MemberID != uuid.Nil {
		expressions = append(expressions, goqu.C(colMemberID).Eq(filter.MemberID.String()))
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}

		expressions = append(expressions, goqu.C(colStatus).In(statuses))
	}

	if !filter.DueBefore.IsZero() {
		expressions = append(expressions, goqu.C(colExpectedReturnDate).Lt(dateLiteral(filter.DueBefore)))
	}

	if !filter.LoanDateFrom.IsZero() {
		expressions = append(expressions, goqu.C(colLoanDate).Gte(dateLiteral(filter.LoanDateFrom)))
	}

	if !filter.LoanDateUntil.IsZero() {
		expressions = append(expressions, goqu.C(colLoanDate).Lte(dateLiteral(filter.LoanDateUntil)))
	}

	return expressions
}
