package sqlstore

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/quillhub/blog/internal/core/domain"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"

	constraintUsername = "users_username_key"
	constraintEmail    = "users_email_key"
)

// translateError maps driver errors for uniqueness and write conflicts to
// domain errors. Anything else is returned unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			switch pgErr.ConstraintName {
			case constraintUsername:
				return domain.ErrDuplicateUsername
			case constraintEmail:
				return domain.ErrDuplicateEmail
			}
			return domain.ErrStorageConflict
		case pgSerializationFailure, pgDeadlockDetected:
			return domain.ErrStorageConflict
		}
		return err
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			// SQLite names the column, not the constraint.
			msg := liteErr.Error()
			switch {
			case strings.Contains(msg, "users.username"):
				return domain.ErrDuplicateUsername
			case strings.Contains(msg, "users.email"):
				return domain.ErrDuplicateEmail
			}
			return domain.ErrStorageConflict
		}
		if liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked {
			return domain.ErrStorageConflict
		}
	}
	return err
}
