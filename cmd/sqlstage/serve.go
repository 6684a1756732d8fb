package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/koustreak/sqlstage/internal/metrics"
	"github.com/koustreak/sqlstage/internal/server"
)

type cmdServe struct {
	Addr string `long:"addr" description:"Override server.addr"`
}

func (cmd *cmdServe) Execute([]string) error {
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

	intro := a.introspector(conn)
	// Fail fast on an unreadable catalog rather than on the first request.
	if _, err := intro.Schema(ctx); err != nil {
		return err
	}

	m := metrics.New()
	if err := m.WatchDB(conn.DB, conn.Adapter.Family().String()); err != nil {
		return err
	}

	srv := server.New(intro,
		server.WithHealthCheck(conn.Ping),
		server.WithMetrics(m.Handler()),
		server.WithLogger(a.log),
	)

	sc := a.cfg.Server
	if cmd.Addr != "" {
		sc.Addr = cmd.Addr
	}
	return srv.ListenAndServe(ctx, sc)
}
