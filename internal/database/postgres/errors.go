package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/sqlstage/internal/database"
	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgErrQueryCanceled         = "57014"
	pgErrInsufficientPrivilege = "42501"
	pgErrUndefinedTable        = "42P01"
)

// mapError translates pgx and lib/pq errors into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(classifySQLState(pgErr.Code), fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return errs.Wrap(classifySQLState(string(pqErr.Code)), fmt.Sprintf("%s: %s", msg, pqErr.Message), err)
	}

	return database.MapCommon(err, msg)
}

// classifySQLState maps a SQLSTATE code to ErrKind by class.
func classifySQLState(code string) errs.ErrKind {
	switch code {
	case pgErrQueryCanceled:
		return errs.ErrKindTimeout
	case pgErrInsufficientPrivilege:
		return errs.ErrKindPermissionDenied
	case pgErrUndefinedTable:
		return errs.ErrKindNotFound
	}
	if len(code) < 2 {
		return errs.ErrKindQueryFailed
	}
	switch code[:2] {
	case "08", "53", "57":
		// connection exception, insufficient resources, operator intervention
		return errs.ErrKindConnectionFailed
	case "28":
		// invalid authorization specification
		return errs.ErrKindPermissionDenied
	default:
		return errs.ErrKindQueryFailed
	}
}
