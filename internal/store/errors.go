package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// friendlyError maps a Postgres error code to a user-facing message. pgx
// surfaces errors as *pgconn.PgError; the *pq.Error branch maps lib/pq's
// error type the same way. The service itself opens no database/sql
// connection.
func friendlyError(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return friendlyCode(pgErr.Code, pgErr.ConstraintName)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return friendlyCode(string(pqErr.Code), pqErr.Constraint)
	}

	return err.Error()
}

func friendlyCode(code, constraint string) string {
	switch code {
	case "23505":
		switch constraint {
		case "sessions_pkey":
			return "A session with this id is already being processed."
		default:
			return "A record with the same unique value already exists."
		}
	case "23503":
		return "Some referenced data was not found; the session may have been deleted."
	case "23514":
		return "Some fields have invalid values."
	default:
		return "Database error while processing the request. Please try again."
	}
}
