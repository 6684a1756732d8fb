package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/koustreak/sqlstage/internal/database"
	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/tmp/a.db", "file:/tmp/a.db?_pragma=foreign_keys(1)"},
		{"file:a.db?cache=shared", "file:a.db?cache=shared&_pragma=foreign_keys(1)"},
		{"file:a.db?_pragma=foreign_keys(0)", "file:a.db?_pragma=foreign_keys(0)"},
		{":memory:", "file::memory:?_pragma=foreign_keys(1)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, buildDSN(&database.Config{DSN: tt.in}), tt.in)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	cfg := database.DefaultConfig(filepath.Join(t.TempDir(), "open.db"))
	cfg.Driver = database.DriverSQLite

	h, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, Product, h.Product)
	require.NoError(t, h.Ping(ctx))

	var fk int
	require.NoError(t, h.DB.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	_, err = h.DB.ExecContext(ctx, "SELECT * FROM missing_table")
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(h.MapError(err, "select")))
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil, "x"))
	assert.True(t, errs.IsTimeout(mapError(context.DeadlineExceeded, "x")))
	assert.True(t, errs.IsConnectionFailed(mapError(errors.New("boom"), "x")))

	assert.Equal(t, errs.ErrKindTimeout, classifyCode(codeBusy))
	assert.Equal(t, errs.ErrKindPermissionDenied, classifyCode(codeReadOnly))
	assert.Equal(t, errs.ErrKindQueryFailed, classifyCode(787)) // SQLITE_CONSTRAINT_FOREIGNKEY
}
