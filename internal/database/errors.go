package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/koustreak/sqlstage/internal/errs"
)

// MapCommon translates the errors database/sql itself produces. Vendor
// mappers call it after checking their native error types. Anything not
// recognised is reported as a connectivity failure.
func MapCommon(err error, msg string) error {
	if err == nil {
		return nil
	}

	var e *errs.Error
	if errors.As(err, &e) {
		return e
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	if errors.Is(err, sql.ErrTxDone) {
		return errs.Wrap(errs.ErrKindInvalidInput, msg, err)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}
