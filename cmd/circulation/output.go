package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/library-circulation-go/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type bookView struct {
	ID              string `json:"id"`
	ISBN            string `json:"isbn"`
	Title           string `json:"title"`
	Author          string `json:"author,omitempty"`
	Publisher       string `json:"publisher,omitempty"`
	PublicationYear int    `json:"publication_year,omitempty"`
	Category        string `json:"category,omitempty"`
	AvailableStock  int    `json:"available_stock"`
	TotalStock      int    `json:"total_stock"`
}

func newBookView(b core.Book) bookView {
	return bookView{
		ID:              b.ID.String(),
		ISBN:            b.ISBN,
		Title:           b.Title,
		Author:          b.Author,
		Publisher:       b.Publisher,
		PublicationYear: b.PublicationYear,
		Category:        b.Category,
		AvailableStock:  b.AvailableStock,
		TotalStock:      b.TotalStock,
	}
}

type memberView struct {
	ID               string `json:"id"`
	MemberNumber     string `json:"member_number"`
	Name             string `json:"name"`
	Email            string `json:"email,omitempty"`
	MembershipType   string `json:"membership_type"`
	RegistrationDate string `json:"registration_date"`
	Active           bool   `json:"active"`
}

func newMemberView(m core.Member) memberView {
	return memberView{
		ID:               m.ID.String(),
		MemberNumber:     m.MemberNumber,
		Name:             m.FullName(),
		Email:            m.Email,
		MembershipType:   string(m.MembershipType),
		RegistrationDate: formatDate(m.RegistrationDate),
		Active:           m.Active,
	}
}

type userView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Active   bool   `json:"active"`
}

func newUserView(u core.User) userView {
	return userView{ID: u.ID.String(), Username: u.Username, Role: string(u.Role), Active: u.Active}
}

type eligibilityView struct {
	MemberID     string `json:"member_id"`
	MemberNumber string `json:"member_number"`
	Active       bool   `json:"active"`
	ActiveLoans  int    `json:"active_loans"`
	MaxLoans     int    `json:"max_loans"`
	CanBorrow    bool   `json:"can_borrow"`
	Reason       string `json:"reason,omitempty"`
}

func newEligibilityView(e core.BorrowingEligibility) eligibilityView {
	v := eligibilityView{
		MemberID:     e.MemberID.String(),
		MemberNumber: e.MemberNumber,
		Active:       e.Active,
		ActiveLoans:  e.ActiveLoans,
		MaxLoans:     e.MaxLoans,
		CanBorrow:    e.CanBorrow(),
	}
	if e.Reason != nil {
		v.Reason = e.Reason.Error()
	}

	return v
}

type loanView struct {
	ID                 string `json:"id"`
	BookID             string `json:"book_id"`
	MemberID           string `json:"member_id"`
	UserID             string `json:"user_id"`
	LoanDate           string `json:"loan_date"`
	ExpectedReturnDate string `json:"expected_return_date"`
	ActualReturnDate   string `json:"actual_return_date,omitempty"`
	Status             string `json:"status"`
	Penalty            string `json:"penalty"`
	Notes              string `json:"notes,omitempty"`
}

func newLoanView(l core.Loan) loanView {
	v := loanView{
		ID:                 l.ID.String(),
		BookID:             l.BookID.String(),
		MemberID:           l.MemberID.String(),
		UserID:             l.UserID.String(),
		LoanDate:           formatDate(l.LoanDate),
		ExpectedReturnDate: formatDate(l.ExpectedReturnDate),
		Status:             string(l.Status),
		Penalty:            formatMoney(l.Penalty),
		Notes:              l.Notes,
	}

	if l.ActualReturnDate != nil {
		v.ActualReturnDate = formatDate(*l.ActualReturnDate)
	}

	return v
}

func newLoanViews(loans []core.Loan) []loanView {
	views := make([]loanView, 0, len(loans))
	for _, l := range loans {
		views = append(views, newLoanView(l))
	}

	return views
}

type penaltyView struct {
	LoanID  string `json:"loan_id"`
	Penalty string `json:"penalty"`
}

func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// render prints v as indented JSON with --json, otherwise hands a tab writer to text.
func (a *app) render(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	out := cmd.OutOrStdout()

	if a.flags.jsonOutput {
		encoded, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}

		_, err = fmt.Fprintln(out, string(encoded))

		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	text(w)

	return w.Flush()
}

func printLoanTable(w io.Writer, loans []loanView) {
	if len(loans) == 0 {
		fmt.Fprintln(w, "No loans found.")
		return
	}

	fmt.Fprintln(w, "ID\tMEMBER\tBOOK\tLOANED\tDUE\tRETURNED\tSTATUS\tPENALTY")
	for _, l := range loans {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ID, l.MemberID, l.BookID, l.LoanDate, l.ExpectedReturnDate, dashIfEmpty(l.ActualReturnDate), l.Status, l.Penalty)
	}
}

func printLoan(w io.Writer, l loanView) {
	fmt.Fprintf(w, "Loan:\t%s\n", l.ID)
	fmt.Fprintf(w, "Member:\t%s\n", l.MemberID)
	fmt.Fprintf(w, "Book:\t%s\n", l.BookID)
	fmt.Fprintf(w, "Processed by:\t%s\n", l.UserID)
	fmt.Fprintf(w, "Loaned:\t%s\n", l.LoanDate)
	fmt.Fprintf(w, "Due:\t%s\n", l.ExpectedReturnDate)
	fmt.Fprintf(w, "Returned:\t%s\n", dashIfEmpty(l.ActualReturnDate))
	fmt.Fprintf(w, "Status:\t%s\n", l.Status)
	fmt.Fprintf(w, "Penalty:\t%s\n", l.Penalty)
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
