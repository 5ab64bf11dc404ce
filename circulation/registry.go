package circulation

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-circulation-go/core"
	"github.com/AntonStoeckl/library-circulation-go/store"
)

// AddBook puts a new title into the catalog with all its copies available.
func (c *Coordinator) AddBook(ctx context.Context, input core.NewBook) (core.Book, error) {
	var added core.Book

	err := c.observe(ctx, OpAddBook, func(ctx context.Context) error {
		book, err := core.BuildBook(uuid.New(), input)
		if err != nil {
			return err
		}

		err = c.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.InsertBook(ctx, book)
		})
		if err != nil {
			return duplicateAs(err, core.DuplicateISBNError{ISBN: book.ISBN})
		}

		added = book

		return nil
	})

	return added, err
}

// RegisterMember registers an active member as of today. The tier defaults to BASIC.
func (c *Coordinator) RegisterMember(ctx context.Context, input core.NewMember) (core.Member, error) {
	var registered core.Member

	err := c.observe(ctx, OpRegisterMember, func(ctx context.Context) error {
		member, err := core.BuildMember(uuid.New(), input, c.clock.Now())
		if err != nil {
			return err
		}

		err = c.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.InsertMember(ctx, member)
		})
		if err != nil {
			return duplicateAs(err, core.DuplicateMemberNumberError{MemberNumber: member.MemberNumber})
		}

		registered = member

		return nil
	})

	return registered, err
}

// RegisterUser registers an operator who records loans.
func (c *Coordinator) RegisterUser(ctx context.Context, input core.NewUser) (core.User, error) {
	var registered core.User

	err := c.observe(ctx, OpRegisterUser, func(ctx context.Context) error {
		user, err := core.BuildUser(uuid.New(), input)
		if err != nil {
			return err
		}

		err = c.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.InsertUser(ctx, user)
		})
		if err != nil {
			return duplicateAs(err, core.DuplicateUsernameError{Username: user.Username})
		}

		registered = user

		return nil
	})

	return registered, err
}

// SetMemberActive deactivates or reactivates a member.
// Deactivation blocks new loans only, open loans can still be returned.
func (c *Coordinator) SetMemberActive(ctx context.Context, memberID uuid.UUID, active bool) (core.Member, error) {
	var updated core.Member

	err := c.observe(ctx, OpSetMemberActive, func(ctx context.Context) error {
		return c.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
			member, err := tx.LockMember(ctx, memberID)
			if err != nil {
				return notFoundAs(err, core.MemberNotFoundError{MemberID: memberID})
			}

			if err = tx.UpdateMemberActive(ctx, memberID, active); err != nil {
				return err
			}

			member.Active = active
			updated = member

			return nil
		})
	})

	return updated, err
}

// duplicateAs replaces store.ErrDuplicateRecord with the typed error naming the taken key.
func duplicateAs(err error, duplicate error) error {
	if errors.Is(err, store.ErrDuplicateRecord) {
		return duplicate
	}

	return err
}
