package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no row matches the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write would violate a unique constraint.
	ErrConflict = errors.New("uniqueness violation")
)

const pgUniqueViolation = "23505"

// ConflictError names the field whose unique constraint was violated. Field
// is empty when the database did not say which one.
type ConflictError struct {
	Field string
	Value any
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return ErrConflict.Error()
	}
	if e.Value == nil {
		return fmt.Sprintf("%s: %s already exists", ErrConflict, e.Field)
	}
	return fmt.Sprintf("%s: %s %v already exists", ErrConflict, e.Field, e.Value)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// MissingError lists related ids that do not exist.
type MissingError struct {
	IDs []uint
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: ids %v", ErrNotFound, e.IDs)
}

func (e *MissingError) Unwrap() error {
	return ErrNotFound
}

// TranslateError maps driver and gorm errors onto this package's errors.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &ConflictError{Field: conflictField(err.Error())}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &ConflictError{Field: conflictField(pgErr.ConstraintName)}
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return &ConflictError{Field: conflictField(err.Error())}
	}
	return err
}

// conflictField extracts a column name from a sqlite message
// ("UNIQUE constraint failed: users.username") or a gorm index name
// ("idx_users_username").
func conflictField(msg string) string {
	if i := strings.LastIndex(msg, "constraint failed: "); i >= 0 {
		col := msg[i+len("constraint failed: "):]
		if j := strings.IndexAny(col, " ,"); j >= 0 {
			col = col[:j]
		}
		if j := strings.LastIndex(col, "."); j >= 0 {
			col = col[j+1:]
		}
		return strings.TrimSpace(col)
	}
	for _, table := range []string{"users", "tourns", "records"} {
		prefix := "idx_" + table + "_"
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return ""
}
