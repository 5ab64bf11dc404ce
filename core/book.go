package core

import (
	"strings"

	"github.com/google/uuid"
)

// Book is a catalogued title together with its copy counters.
// Invariant: 0 <= AvailableStock <= TotalStock.
type Book struct {
	ID              uuid.UUID
	ISBN            string
	Title           string
	Author          string
	Publisher       string
	PublicationYear int
	Category        string
	AvailableStock  int
	TotalStock      int
}

// NewBook is the input for cataloguing a book.
type NewBook struct {
	ISBN            string
	Title           string
	Author          string
	Publisher       string
	PublicationYear int
	Category        string
	TotalStock      int
}

// BuildBook validates the input and returns a Book with all copies on the shelf.
func BuildBook(id uuid.UUID, input NewBook) (Book, error) {
	isbn := strings.TrimSpace(input.ISBN)
	if isbn == "" {
		return Book{}, ErrEmptyISBN
	}

	if input.TotalStock < 1 {
		return Book{}, ErrInvalidTotalStock
	}

	return Book{
		ID:              id,
		ISBN:            isbn,
		Title:           input.Title,
		Author:          input.Author,
		Publisher:       input.Publisher,
		PublicationYear: input.PublicationYear,
		Category:        input.Category,
		AvailableStock:  input.TotalStock,
		TotalStock:      input.TotalStock,
	}, nil
}
