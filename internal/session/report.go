package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/koustreak/sqlstage/internal/entity"
	"github.com/koustreak/sqlstage/internal/errs"
)

// BatchResult describes one executed batch.
type BatchResult struct {
	Type         string           `json:"type" yaml:"type"`
	Operation    entity.Operation `json:"operation" yaml:"operation"`
	Statements   int              `json:"statements" yaml:"statements"`
	RowsAffected int64            `json:"rows_affected" yaml:"rows_affected"`
}

// FlushReport summarises a flush. Batches are listed in execution order
// and include the batches that ran before a failure.
type FlushReport struct {
	Strategy     Strategy      `json:"strategy" yaml:"strategy"`
	Batches      []BatchResult `json:"batches" yaml:"batches"`
	Statements   int           `json:"statements" yaml:"statements"`
	RowsAffected int64         `json:"rows_affected" yaml:"rows_affected"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
}

func (r *FlushReport) add(b BatchResult) {
	r.Batches = append(r.Batches, b)
	r.Statements += b.Statements
	r.RowsAffected += b.RowsAffected
}

// Failure is a statement that did not affect exactly one row.
type Failure struct {
	Type      string           `json:"type" yaml:"type"`
	Operation entity.Operation `json:"operation" yaml:"operation"`
	SQL       string           `json:"sql" yaml:"sql"`
	Args      []any            `json:"args,omitempty" yaml:"args,omitempty"`
	Affected  int64            `json:"affected" yaml:"affected"`
}

// BatchError lists every statement of a flush whose row count was not
// one. errs.KindOf reports it as ErrKindBatchMismatch.
type BatchError struct {
	Failures []Failure
	cause    *errs.Error
}

func newBatchError(failures []Failure) *BatchError {
	return &BatchError{
		Failures: failures,
		cause:    errs.Newf(errs.ErrKindBatchMismatch, "%d statements affected an unexpected number of rows", len(failures)),
	}
}

func (e *BatchError) Error() string {
	var b strings.Builder
	b.WriteString(e.cause.Error())
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n  %s %s (%d rows): %s", f.Operation, f.Type, f.Affected, f.SQL)
	}
	return b.String()
}

func (e *BatchError) Unwrap() error { return e.cause }
