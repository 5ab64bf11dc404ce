package core

// HasAvailableCopy reports whether at least one copy of the book is on the shelf.
func HasAvailableCopy(book Book) bool {
	return book.AvailableStock > 0
}

// DecrementStock takes one copy off the shelf.
func DecrementStock(book Book) (Book, error) {
	return adjustStock(book, -1)
}

// IncrementStock puts one copy back on the shelf.
func IncrementStock(book Book) (Book, error) {
	return adjustStock(book, 1)
}

func adjustStock(book Book, delta int) (Book, error) {
	next := book.AvailableStock + delta

	if next < 0 || next > book.TotalStock {
		return book, StockInvariantViolationError{
			BookID:         book.ID,
			AvailableStock: book.AvailableStock,
			TotalStock:     book.TotalStock,
			Delta:          delta,
		}
	}

	book.AvailableStock = next

	return book, nil
}
