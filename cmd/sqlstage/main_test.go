package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/koustreak/sqlstage/internal/database"
	"github.com/koustreak/sqlstage/internal/database/sqlite"
	"github.com/koustreak/sqlstage/internal/dialect"
	"github.com/koustreak/sqlstage/internal/entity"
	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/koustreak/sqlstage/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

// fixture writes a config for a fresh SQLite database holding
// party <- person, points baseCfg at it and captures stdout.
func fixture(t *testing.T, extra string) (*database.Handle, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cli.db")

	cfgPath := filepath.Join(dir, "sqlstage.yaml")
	cfg := fmt.Sprintf("database:\n  driver: sqlite\n  dsn: %s\nlogging:\n  level: error\n%s", dbPath, extra)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	prevCfg, prevOut := baseCfg.Config, stdout
	out := new(bytes.Buffer)
	baseCfg.Config, stdout = cfgPath, out
	t.Cleanup(func() { baseCfg.Config, stdout = prevCfg, prevOut })

	dc := database.DefaultConfig(dbPath)
	dc.Driver = database.DriverSQLite
	h, err := sqlite.Open(context.Background(), dc)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	for _, ddl := range []string{
		`CREATE TABLE party (id INTEGER PRIMARY KEY, name TEXT NOT NULL, version INTEGER)`,
		`CREATE TABLE person (id INTEGER PRIMARY KEY REFERENCES party(id), born TEXT)`,
	} {
		_, err := h.DB.Exec(ddl)
		require.NoError(t, err, ddl)
	}
	return h, out
}

func writeRecords(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDecodeRecords(t *testing.T) {
	entries, err := decodeRecords([]byte(`[{"type": "party", "op": "update", "values": {"id": 2, "name": "Babbage"}}]`))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entity.Update, entries[0].Op)
	assert.Equal(t, "Babbage", entries[0].Values["name"])

	entries, err = decodeRecords(nil)
	require.NoError(t, err)
	assert.Empty(t, entries)

	for _, bad := range []string{
		"- type: party\n  op: upsert\n",
		"- op: insert\n",
		"- type: party\n  colour: red\n",
	} {
		_, err := decodeRecords([]byte(bad))
		assert.True(t, errs.IsInvalidInput(err), bad)
	}
}

func TestLoad(t *testing.T) {
	h, out := fixture(t, "")

	inserts := writeRecords(t, `
- type: person
  op: insert
  values: {id: 1, name: Ada, born: "1815-12-10"}
- type: party
  op: insert
  values: {id: 2, name: Charles}
`)
	require.NoError(t, (&cmdLoad{Records: inserts, Format: "yaml"}).Execute(nil))

	var rep session.FlushReport
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &rep))
	assert.Equal(t, session.StrategyPrepared, rep.Strategy)
	assert.Equal(t, 3, rep.Statements)
	assert.Equal(t, int64(3), rep.RowsAffected)

	changes := writeRecords(t, `
- type: party
  op: update
  values: {id: 2, name: Babbage}
- type: person
  op: delete
  values: {id: 1}
`)
	out.Reset()
	require.NoError(t, (&cmdLoad{Records: changes, Format: "json"}).Execute(nil))
	assert.Contains(t, out.String(), `"rows_affected": 3`)

	var (
		name    string
		version int64
		n       int
	)
	require.NoError(t, h.DB.QueryRow(`SELECT name, version FROM party WHERE id = 2`).Scan(&name, &version))
	assert.Equal(t, "Babbage", name)
	assert.Equal(t, int64(1), version)
	require.NoError(t, h.DB.QueryRow(`SELECT count(*) FROM party`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestLoad_DryRunAndErrors(t *testing.T) {
	h, _ := fixture(t, "")

	inserts := writeRecords(t, "- {type: party, op: insert, values: {id: 9, name: Grace}}\n")
	require.NoError(t, (&cmdLoad{Records: inserts, DryRun: true}).Execute(nil))

	var n int
	require.NoError(t, h.DB.QueryRow(`SELECT count(*) FROM party`).Scan(&n))
	assert.Zero(t, n, "dry run rolled back")

	missing := writeRecords(t, "- {type: party, op: delete, values: {name: Grace}}\n")
	err := (&cmdLoad{Records: missing}).Execute(nil)
	assert.Equal(t, errs.ErrKindMissingIdentifier, errs.KindOf(err))

	unknown := writeRecords(t, "- {type: party, op: insert, values: {id: 1, nickname: G}}\n")
	err = (&cmdLoad{Records: unknown}).Execute(nil)
	assert.True(t, errs.IsInvalidInput(err))

	ghost := writeRecords(t, "- {type: party, op: update, values: {id: 404, name: X}}\n")
	err = (&cmdLoad{Records: ghost}).Execute(nil)
	assert.True(t, errs.IsNotFound(err))
}

func TestLoad_CSV(t *testing.T) {
	dir := t.TempDir()
	h, _ := fixture(t, fmt.Sprintf("csv:\n  dir: %s\n", dir))

	inserts := writeRecords(t, "- {type: party, op: insert, values: {id: 1, name: Ada}}\n")
	require.NoError(t, (&cmdLoad{Records: inserts, Strategy: "csv"}).Execute(nil))

	data, err := os.ReadFile(filepath.Join(dir, "party.csv"))
	require.NoError(t, err)
	assert.Equal(t, "1,'Ada',NULL\n", string(data))

	var n int
	require.NoError(t, h.DB.QueryRow(`SELECT count(*) FROM party`).Scan(&n))
	assert.Zero(t, n, "csv strategy executes nothing")
}

func TestInspect(t *testing.T) {
	_, out := fixture(t, "")

	require.NoError(t, (&cmdInspect{Format: "yaml"}).Execute(nil))
	var doc struct {
		Dialect string `yaml:"dialect"`
		Tables  []struct {
			Name   string `yaml:"name"`
			Parent string `yaml:"parent"`
		} `yaml:"tables"`
	}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "sqlite", doc.Dialect)
	require.Len(t, doc.Tables, 2)
	assert.Equal(t, "party", doc.Tables[0].Name)
	assert.Equal(t, "party", doc.Tables[1].Parent)

	out.Reset()
	require.NoError(t, (&cmdInspect{Table: "person", Format: "json"}).Execute(nil))
	assert.Contains(t, out.String(), `"name": "person"`)

	err := (&cmdInspect{Table: "ghost"}).Execute(nil)
	assert.True(t, errs.IsNotFound(err))
}

func TestDDL(t *testing.T) {
	var buf bytes.Buffer
	a, err := dialect.DefaultRegistry().ForFamily(dialect.FamilySQLite)
	require.NoError(t, err)
	require.NoError(t, writeDDL(&buf, a, "tmp_join", "party_seq"))
	assert.Contains(t, buf.String(), "-- temp join table\n")
	assert.Contains(t, buf.String(), "tmp_join")
	assert.Contains(t, buf.String(), "-- next value: not supported by sqlite")

	pg, err := dialect.DefaultRegistry().ForFamily(dialect.FamilyPostgres)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, writeDDL(&buf, pg, "tmp_join", "party_seq"))
	assert.Contains(t, buf.String(), "party_seq")
	assert.NotContains(t, buf.String(), "not supported")
}

func TestPrintConfig(t *testing.T) {
	_, out := fixture(t, "")
	require.NoError(t, (&cmdPrintConfig{}).Execute(nil))
	assert.Contains(t, out.String(), "driver: sqlite")
	assert.Contains(t, out.String(), "import_strategy: prepared")
}
