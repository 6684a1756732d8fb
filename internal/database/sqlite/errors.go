package sqlite

import (
	"errors"
	"fmt"

	"github.com/koustreak/sqlstage/internal/database"
	"github.com/koustreak/sqlstage/internal/errs"
	"modernc.org/sqlite"
)

// Primary SQLite result codes
// Full list: https://www.sqlite.org/rescode.html
const (
	codePerm     = 3
	codeBusy     = 5
	codeLocked   = 6
	codeReadOnly = 8
	codeCantOpen = 14
	codeAuth     = 23
)

// mapError translates modernc.org/sqlite errors into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return errs.Wrap(classifyCode(sqliteErr.Code()), fmt.Sprintf("%s: %s", msg, sqliteErr.Error()), err)
	}

	return database.MapCommon(err, msg)
}

// classifyCode maps an (extended) SQLite result code to ErrKind by its
// primary code.
func classifyCode(code int) errs.ErrKind {
	switch code & 0xff {
	case codeBusy, codeLocked:
		return errs.ErrKindTimeout
	case codePerm, codeReadOnly, codeAuth:
		return errs.ErrKindPermissionDenied
	case codeCantOpen:
		return errs.ErrKindConnectionFailed
	default:
		return errs.ErrKindQueryFailed
	}
}
