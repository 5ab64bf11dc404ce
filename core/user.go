package core

import (
	"strings"

	"github.com/google/uuid"
)

// UserRole is the role of a library operator.
type UserRole string

const (
	RoleAdministrator UserRole = "ADMINISTRATOR"
	RoleLibrarian     UserRole = "LIBRARIAN"
	RoleAssistant     UserRole = "ASSISTANT"
)

// ParseUserRole accepts the role name case-insensitively.
func ParseUserRole(s string) (UserRole, error) {
	switch r := UserRole(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleAdministrator, RoleLibrarian, RoleAssistant:
		return r, nil
	default:
		return "", ErrUnknownUserRole
	}
}

// User is the staff member who processes a loan.
type User struct {
	ID        uuid.UUID
	Username  string
	FirstName string
	LastName  string
	Email     string
	Role      UserRole
	Active    bool
}

// NewUser is the input for registering an operator.
type NewUser struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Role      UserRole
}

// BuildUser validates the input and returns an active user.
func BuildUser(id uuid.UUID, input NewUser) (User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return User{}, ErrEmptyUsername
	}

	role, err := ParseUserRole(string(input.Role))
	if err != nil {
		return User{}, err
	}

	return User{
		ID:        id,
		Username:  username,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Role:      role,
		Active:    true,
	}, nil
}
