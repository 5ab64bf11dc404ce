package postgresengine

import (
	"context"
	"fmt"
)

// CreateSchema creates the tables and indexes the Store works on, if they do not exist yet.
// Statements run one at a time since not every driver accepts multi-statement strings.
func (s *Store) CreateSchema(ctx context.Context) error {
	for _, statement := range s.schemaStatements() {
		if err := s.exec(ctx, statement, actionCreateSchema); err != nil {
			return err
		}
	}

	s.logOperation(ctx, actionCreateSchema, "tables", []string{s.tables.books, s.tables.members, s.tables.users, s.tables.loans})

	return nil
}

func (s *Store) schemaStatements() []string {
	t := s.tables

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
			id UUID PRIMARY KEY,
			isbn TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			author TEXT NOT NULL DEFAULT '',
			publisher TEXT NOT NULL DEFAULT '',
			publication_year INTEGER NOT NULL DEFAULT 0,
			category TEXT NOT NULL DEFAULT '',
			available_stock INTEGER NOT NULL,
			total_stock INTEGER NOT NULL,
			CONSTRAINT %[1]s_stock_bounds CHECK (available_stock >= 0 AND available_stock <= total_stock)
		)`, t.books),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			member_number TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			document_id TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			registration_date DATE NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			membership_type TEXT NOT NULL CHECK (membership_type IN ('BASIC', 'PREMIUM', 'VIP'))
		)`, t.members),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL CHECK (role IN ('ADMINISTRATOR', 'LIBRARIAN', 'ASSISTANT')),
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`, t.users),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			book_id UUID NOT NULL REFERENCES %s (id),
			member_id UUID NOT NULL REFERENCES %s (id),
			user_id UUID NOT NULL REFERENCES %s (id),
			loan_date DATE NOT NULL,
			expected_return_date DATE NOT NULL,
			actual_return_date DATE,
			status TEXT NOT NULL CHECK (status IN ('ACTIVE', 'RETURNED', 'OVERDUE', 'RENEWED')),
			penalty NUMERIC(10, 2) NOT NULL DEFAULT 0 CHECK (penalty >= 0),
			notes TEXT NOT NULL DEFAULT ''
		)`, t.loans, t.books, t.members, t.users),

		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_member_status_idx ON %[1]s (member_id, status)`, t.loans),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_status_due_idx ON %[1]s (status, expected_return_date)`, t.loans),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_loan_date_idx ON %[1]s (loan_date)`, t.loans),
	}
}
