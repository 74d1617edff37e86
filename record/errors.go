package record

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingDatabase matches any MissingDatabaseError via errors.Is.
	ErrMissingDatabase = errors.New("schedule: database not set")

	// ErrMissingField is returned when a relationship accessor needs a field the record lacks.
	ErrMissingField = errors.New("schedule: missing field")
)

// MissingDatabaseError is returned by fetch operations when no store is bound.
type MissingDatabaseError struct {
	// Variant is the name of the variant that attempted the fetch.
	Variant string
}

func (e *MissingDatabaseError) Error() string {
	return fmt.Sprintf("database not set; call '%s.SetDB(db)'", e.Variant)
}

// Is reports whether target is ErrMissingDatabase.
func (e *MissingDatabaseError) Is(target error) bool {
	return target == ErrMissingDatabase
}
