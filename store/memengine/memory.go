// Package memengine provides an in-memory implementation of store.Store.
//
// Transactions are serialized by a store-wide lock. Each transaction works on a private copy of the state
// which replaces the committed state only when the transaction function succeeds, so a failing
// transaction leaves no trace. Reads outside a transaction see the last committed state.
package memengine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-circulation-go/core"
	"github.com/AntonStoeckl/library-circulation-go/store"
)

const (
	logMsgCommitted  = "memengine: transaction committed"
	logMsgRolledBack = "memengine: transaction rolled back"
	logAttrError     = "error"
	logAttrLoans     = "loan_count"
)

var errCheckConstraint = errors.New("check constraint violated: 0 <= available_stock <= total_stock")

type memoryState struct {
	books   map[uuid.UUID]core.Book
	members map[uuid.UUID]core.Member
	users   map[uuid.UUID]core.User
	loans   map[uuid.UUID]core.Loan
}

func newMemoryState() memoryState {
	return memoryState{
		books:   map[uuid.UUID]core.Book{},
		members: map[uuid.UUID]core.Member{},
		users:   map[uuid.UUID]core.User{},
		loans:   map[uuid.UUID]core.Loan{},
	}
}

func (s memoryState) clone() memoryState {
	c := memoryState{
		books:   make(map[uuid.UUID]core.Book, len(s.books)),
		members: make(map[uuid.UUID]core.Member, len(s.members)),
		users:   make(map[uuid.UUID]core.User, len(s.users)),
		loans:   make(map[uuid.UUID]core.Loan, len(s.loans)),
	}

	for id, b := range s.books {
		c.books[id] = b
	}

	for id, m := range s.members {
		c.members[id] = m
	}

	for id, u := range s.users {
		c.users[id] = u
	}

	for id, l := range s.loans {
		c.loans[id] = cloneLoan(l)
	}

	return c
}

func cloneLoan(l core.Loan) core.Loan {
	if l.ActualReturnDate != nil {
		returned := *l.ActualReturnDate
		l.ActualReturnDate = &returned
	}

	return l
}

// Store is an in-memory transactional store.
type Store struct {
	txMu   sync.Mutex
	mu     sync.RWMutex
	state  memoryState
	logger store.Logger
}

// Option defines a functional option for configuring Store.
type Option func(*Store)

// WithLogger sets a logger that receives commit and rollback messages at debug level.
func WithLogger(logger store.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates an empty in-memory store.
func NewStore(options ...Option) *Store {
	s := &Store{state: newMemoryState()}

	for _, option := range options {
		option(s)
	}

	return s
}

// WithinTx implements store.Store.
func (s *Store) WithinTx(ctx context.Context, fn store.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(store.ErrBeginTxFailed, err)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	working := s.state.clone()
	s.mu.RUnlock()

	// A panic unwinds through here without committing, which discards working.
	if err := fn(ctx, &memTx{state: &working}); err != nil {
		s.logDebug(logMsgRolledBack, logAttrError, err.Error())
		return err
	}

	if err := ctx.Err(); err != nil {
		s.logDebug(logMsgRolledBack, logAttrError, err.Error())
		return errors.Join(store.ErrCommitFailed, err)
	}

	s.mu.Lock()
	s.state = working
	s.mu.Unlock()

	s.logDebug(logMsgCommitted, logAttrLoans, len(working.loans))

	return nil
}

// FindLoanByID implements store.Reader.
func (s *Store) FindLoanByID(_ context.Context, loanID uuid.UUID) (core.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loan, ok := s.state.loans[loanID]
	if !ok {
		return core.Loan{}, store.ErrRecordNotFound
	}

	return cloneLoan(loan), nil
}

// FindLoans implements store.Reader.
func (s *Store) FindLoans(_ context.Context, filter store.LoanFilter) ([]core.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loans := make([]core.Loan, 0)
	for _, loan := range s.state.loans {
		if filter.Matches(loan) {
			loans = append(loans, cloneLoan(loan))
		}
	}

	slices.SortFunc(loans, func(a, b core.Loan) int {
		if c := b.LoanDate.Compare(a.LoanDate); c != 0 {
			return c
		}

		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return loans, nil
}

// FindBookByID implements store.Reader.
func (s *Store) FindBookByID(_ context.Context, bookID uuid.UUID) (core.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book, ok := s.state.books[bookID]
	if !ok {
		return core.Book{}, store.ErrRecordNotFound
	}

	return book, nil
}

// FindMemberByID implements store.Reader.
func (s *Store) FindMemberByID(_ context.Context, memberID uuid.UUID) (core.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member, ok := s.state.members[memberID]
	if !ok {
		return core.Member{}, store.ErrRecordNotFound
	}

	return member, nil
}

// FindBookByISBN implements store.Reader.
func (s *Store) FindBookByISBN(_ context.Context, isbn string) (core.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, book := range s.state.books {
		if book.ISBN == isbn {
			return book, nil
		}
	}

	return core.Book{}, store.ErrRecordNotFound
}

// FindMemberByNumber implements store.Reader.
func (s *Store) FindMemberByNumber(_ context.Context, memberNumber string) (core.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, member := range s.state.members {
		if member.MemberNumber == memberNumber {
			return member, nil
		}
	}

	return core.Member{}, store.ErrRecordNotFound
}

func (s *Store) logDebug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

// memTx is the store.Tx working on a private copy of the state.
type memTx struct {
	state *memoryState
}

func (tx *memTx) LockMember(_ context.Context, memberID uuid.UUID) (core.Member, error) {
	member, ok := tx.state.members[memberID]
	if !ok {
		return core.Member{}, store.ErrRecordNotFound
	}

	return member, nil
}

func (tx *memTx) LockBook(_ context.Context, bookID uuid.UUID) (core.Book, error) {
	book, ok := tx.state.books[bookID]
	if !ok {
		return core.Book{}, store.ErrRecordNotFound
	}

	return book, nil
}

func (tx *memTx) LockLoan(_ context.Context, loanID uuid.UUID) (core.Loan, error) {
	loan, ok := tx.state.loans[loanID]
	if !ok {
		return core.Loan{}, store.ErrRecordNotFound
	}

	return cloneLoan(loan), nil
}

func (tx *memTx) LoadUser(_ context.Context, userID uuid.UUID) (core.User, error) {
	user, ok := tx.state.users[userID]
	if !ok {
		return core.User{}, store.ErrRecordNotFound
	}

	return user, nil
}

func (tx *memTx) CountLoansByMember(_ context.Context, memberID uuid.UUID, statuses ...core.LoanStatus) (int, error) {
	filter := store.LoanFilter{MemberID: memberID, Statuses: statuses}

	count := 0
	for _, loan := range tx.state.loans {
		if filter.Matches(loan) {
			count++
		}
	}

	return count, nil
}

func (tx *memTx) InsertLoan(_ context.Context, loan core.Loan) error {
	if _, exists := tx.state.loans[loan.ID]; exists {
		return store.ErrDuplicateRecord
	}

	tx.state.loans[loan.ID] = cloneLoan(loan)

	return nil
}

func (tx *memTx) UpdateLoan(_ context.Context, loan core.Loan) error {
	if _, exists := tx.state.loans[loan.ID]; !exists {
		return store.ErrNoRowsAffected
	}

	tx.state.loans[loan.ID] = cloneLoan(loan)

	return nil
}

func (tx *memTx) UpdateBookStock(_ context.Context, book core.Book) error {
	current, exists := tx.state.books[book.ID]
	if !exists {
		return store.ErrNoRowsAffected
	}

	if book.AvailableStock < 0 || book.AvailableStock > current.TotalStock {
		return errors.Join(store.ErrExecFailed, fmt.Errorf("%w: book %s", errCheckConstraint, book.ID))
	}

	current.AvailableStock = book.AvailableStock
	tx.state.books[book.ID] = current

	return nil
}

func (tx *memTx) InsertBook(_ context.Context, book core.Book) error {
	for _, existing := range tx.state.books {
		if existing.ID == book.ID || existing.ISBN == book.ISBN {
			return store.ErrDuplicateRecord
		}
	}

	tx.state.books[book.ID] = book

	return nil
}

func (tx *memTx) InsertMember(_ context.Context, member core.Member) error {
	for _, existing := range tx.state.members {
		if existing.ID == member.ID || existing.MemberNumber == member.MemberNumber {
			return store.ErrDuplicateRecord
		}
	}

	tx.state.members[member.ID] = member

	return nil
}

func (tx *memTx) InsertUser(_ context.Context, user core.User) error {
	for _, existing := range tx.state.users {
		if existing.ID == user.ID || existing.Username == user.Username {
			return store.ErrDuplicateRecord
		}
	}

	tx.state.users[user.ID] = user

	return nil
}

func (tx *memTx) UpdateMemberActive(_ context.Context, memberID uuid.UUID, active bool) error {
	member, exists := tx.state.members[memberID]
	if !exists {
		return store.ErrNoRowsAffected
	}

	member.Active = active
	tx.state.members[memberID] = member

	return nil
}

var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*memTx)(nil)
)
