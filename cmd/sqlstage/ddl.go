package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/koustreak/sqlstage/internal/dialect"
	"github.com/koustreak/sqlstage/internal/errs"
)

type cmdDDL struct {
	Dialect   string `long:"dialect" short:"d" required:"true" choice:"postgres" choice:"mysql" choice:"sqlite" choice:"oracle" description:"Dialect to render"`
	TempTable string `long:"temp-table" default:"sqlstage_join" description:"Name of the temporary join table"`
	Sequence  string `long:"sequence" description:"Also print the next-value query for this sequence"`
}

var families = map[string]dialect.Family{
	"postgres": dialect.FamilyPostgres,
	"mysql":    dialect.FamilyMySQL,
	"sqlite":   dialect.FamilySQLite,
	"oracle":   dialect.FamilyOracle,
}

func (cmd *cmdDDL) Execute([]string) error {
	f, ok := families[strings.ToLower(cmd.Dialect)]
	if !ok {
		return errs.Newf(errs.ErrKindUnsupportedDatabase, "unknown dialect %q", cmd.Dialect)
	}
	a, err := dialect.DefaultRegistry().ForFamily(f)
	if err != nil {
		return err
	}
	return writeDDL(stdout, a, cmd.TempTable, cmd.Sequence)
}

func writeDDL(w io.Writer, a dialect.Adapter, tempTable, sequence string) error {
	sections := []struct{ name, sql string }{
		{"temp join table", a.TempJoinTableDDL(tempTable)},
		{"columns", a.ColumnsQuery()},
		{"primary keys", a.PrimaryKeysQuery()},
		{"foreign keys", a.ForeignKeysQuery()},
		{"sequences", a.SequencesQuery()},
		{"table exists", a.TableExistsQuery()},
	}
	if sequence != "" {
		sections = append(sections, struct{ name, sql string }{"next value", a.NextValueQuery(sequence)})
	}
	for _, s := range sections {
		if s.sql == "" {
			if _, err := fmt.Fprintf(w, "-- %s: not supported by %s\n\n", s.name, a.Family()); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "-- %s\n%s;\n\n", s.name, strings.TrimSpace(s.sql)); err != nil {
			return err
		}
	}
	return nil
}
