// Package circulation coordinates loan operations across books, members and loans.
//
// The Coordinator is the only component that changes a loan's status or a book's available stock.
// Every mutating operation runs as one store transaction: the rows it checks are locked first, the
// domain rules in package core decide, and the loan and stock writes commit together or not at all.
//
// Usage:
//
//	coordinator, err := circulation.New(s, circulation.SystemClock{}, circulation.DefaultPolicy(),
//		circulation.WithLogger(slog.Default()),
//	)
//
//	loan, err := coordinator.CreateLoan(ctx, memberID, bookID, userID)
//	if errors.Is(err, core.ErrPolicyViolation) {
//		// rejected by a business rule, nothing was written
//	}
package circulation
