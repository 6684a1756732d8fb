package main

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/koustreak/sqlstage/internal/errs"
	"github.com/koustreak/sqlstage/internal/schema"
)

type cmdInspect struct {
	Table  string `long:"table" short:"t" description:"Print only this table"`
	Format string `long:"format" short:"o" choice:"yaml" choice:"json" default:"yaml" description:"Output format"`
}

// schemaDoc is the document printed by inspect.
type schemaDoc struct {
	Dialect   string                 `json:"dialect" yaml:"dialect"`
	Tables    []schema.TableView     `json:"tables" yaml:"tables"`
	Sequences []*schema.SequenceInfo `json:"sequences,omitempty" yaml:"sequences,omitempty"`
}

func (cmd *cmdInspect) Execute([]string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	s, err := a.introspector(conn).Schema(ctx)
	if err != nil {
		return err
	}

	if cmd.Table != "" {
		t := s.Table(cmd.Table)
		if t == nil {
			return errs.Newf(errs.ErrKindNotFound, "table %q not found", cmd.Table)
		}
		return encode(stdout, cmd.Format, t.View())
	}
	return encode(stdout, cmd.Format, describe(s, conn.Adapter.Family().String()))
}

// describe lists tables shallowest first so parents precede children.
func describe(s *schema.Schema, dialect string) schemaDoc {
	order := schema.NewOrderer(s)
	tables := s.Tables()
	slices.SortStableFunc(tables, func(a, b *schema.TableInfo) int { return order.Compare(a.Name(), b.Name()) })

	doc := schemaDoc{Dialect: dialect, Sequences: s.Sequences()}
	for _, t := range tables {
		doc.Tables = append(doc.Tables, t.View())
	}
	return doc
}
