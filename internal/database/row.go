package database

import (
	"database/sql"

	"github.com/koustreak/sqlstage/internal/errs"
)

// ScanRow reads the first row of the result set as a map and closes rows.
// Returns ErrKindNotFound if there is no row.
func ScanRow(rows *sql.Rows) (map[string]any, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read column names", err)
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, errs.Wrap(errs.ErrKindQueryFailed, "error during row iteration", err)
		}
		return nil, errs.New(errs.ErrKindNotFound, "no row matched")
	}
	return scanMap(rows, columns)
}

func scanMap(rows *sql.Rows, columns []string) (map[string]any, error) {
	// Allocate scan targets as *any so the driver can write any type.
	dest := make([]any, len(columns))
	destPtrs := make([]any, len(columns))
	for i := range dest {
		destPtrs[i] = &dest[i]
	}

	if err := rows.Scan(destPtrs...); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to scan row", err)
	}

	row := make(map[string]any, len(columns))
	for i, col := range columns {
		row[col] = dest[i]
	}
	return row, nil
}
