package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found or a conditional update matched nothing
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when an email is already held by an account
	ErrDuplicateEmail = errors.New("account with this email already exists")

	// ErrDuplicatePhone is returned when a phone number is already held by an account
	ErrDuplicatePhone = errors.New("account with this phone already exists")

	// ErrDuplicateProviderID is returned when a social provider id is already linked to an account
	ErrDuplicateProviderID = errors.New("provider id already linked to an account")

	// ErrUnknownRole is returned when assigning a role that does not exist
	ErrUnknownRole = errors.New("unknown role")
)

const uniqueViolation = "23505"

// mapUniqueViolation translates a unique index violation on accounts into a
// repository sentinel. It returns nil for any other error.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return nil
	}

	switch pqErr.Constraint {
	case "accounts_email_key":
		return ErrDuplicateEmail
	case "accounts_phone_key":
		return ErrDuplicatePhone
	case "accounts_google_id_key", "accounts_facebook_id_key", "accounts_linkedin_id_key":
		return ErrDuplicateProviderID
	}
	return nil
}
