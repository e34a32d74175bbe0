package store

import (
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a record does not exist or is not owned
	// by the caller.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a versioned write loses a race with
	// another writer.
	ErrConflict = errors.New("version conflict")

	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// validID reports whether id can be used in a uuid column. Malformed ids can
// never match a row, so callers treat them as not found.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
