package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/library-circulation-go/circulation"
	"github.com/AntonStoeckl/library-circulation-go/core"
)

func newBookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Manage the catalogue",
	}

	cmd.AddCommand(newBookAddCmd(a))
	cmd.AddCommand(newBookShowCmd(a))

	return cmd
}

func newBookAddCmd(a *app) *cobra.Command {
	var input core.NewBook

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Catalogue a book with all its copies on the shelf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var book core.Book

			err := a.retry(cmd.Context(), circulation.OpAddBook, func(ctx context.Context) error {
				var err error
				book, err = a.coordinator.AddBook(ctx, input)

				return err
			})
			if err != nil {
				return err
			}

			return a.renderBook(cmd, book)
		},
	}

	cmd.Flags().StringVar(&input.ISBN, "isbn", "", "ISBN (required, unique)")
	cmd.Flags().StringVar(&input.Title, "title", "", "title")
	cmd.Flags().StringVar(&input.Author, "author", "", "author")
	cmd.Flags().StringVar(&input.Publisher, "publisher", "", "publisher")
	cmd.Flags().IntVar(&input.PublicationYear, "year", 0, "publication year")
	cmd.Flags().StringVar(&input.Category, "category", "", "category")
	cmd.Flags().IntVar(&input.TotalStock, "copies", 1, "number of copies owned")
	_ = cmd.MarkFlagRequired("isbn")

	return cmd
}

func newBookShowCmd(a *app) *cobra.Command {
	var isbn string

	cmd := &cobra.Command{
		Use:   "show [<book-id>]",
		Short: "Show a book and its stock",
		Long:  "Show a book by its id, or by its ISBN when --isbn is given.",
		Args:  cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkIDOrKey(args, isbn); err != nil {
				return err
			}

			var (
				book core.Book
				err  error
			)

			if isbn != "" {
				book, err = a.coordinator.FindBookByISBN(cmd.Context(), isbn)
			} else {
				var id uuid.UUID
				if id, err = parseID("book", args[0]); err != nil {
					return err
				}

				book, err = a.coordinator.FindBookByID(cmd.Context(), id)
			}

			if err != nil {
				return err
			}

			return a.renderBook(cmd, book)
		},
	}

	cmd.Flags().StringVar(&isbn, "isbn", "", "look the book up by ISBN")

	return cmd
}

func (a *app) renderBook(cmd *cobra.Command, book core.Book) error {
	v := newBookView(book)

	return a.render(cmd, v, func(w io.Writer) {
		fmt.Fprintf(w, "Book:\t%s\n", v.ID)
		fmt.Fprintf(w, "ISBN:\t%s\n", v.ISBN)
		fmt.Fprintf(w, "Title:\t%s\n", v.Title)
		fmt.Fprintf(w, "Author:\t%s\n", v.Author)
		fmt.Fprintf(w, "Stock:\t%d of %d available\n", v.AvailableStock, v.TotalStock)
	})
}
