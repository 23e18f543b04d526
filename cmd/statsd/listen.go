package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/perfmetrics/perfmetrics/statsd"
)

func (a *app) listen(ctx *cli.Context) error {
	conn, err := net.ListenPacket("udp", ctx.String("addr"))
	if err != nil {
		return err
	}
	level.Info(a.logger).Log("msg", "listening", "addr", conn.LocalAddr())

	sigctx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(sigctx, conn, log.NewLogfmtLogger(log.NewSyncWriter(a.stdout)), a.logger)
}

// run serves conn until ctx is done or reading fails, then closes conn.
func run(ctx context.Context, conn net.PacketConn, out, logger log.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return conn.Close()
	})
	g.Go(func() error {
		err := serve(conn, out, logger)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
	return g.Wait()
}

// serve logs every line of every datagram read from conn to out. The rest
// of a datagram after a malformed line is reported to logger and skipped.
// It returns the first read error.
func serve(conn net.PacketConn, out, logger log.Logger) error {
	buf := make([]byte, 65535)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			return err
		}
		lines, err := statsd.ParsePacket(buf[:n])
		for _, l := range lines {
			out.Log("stat", l.Stat, "kind", string(l.Kind), "value", l.Value, "rate", l.Rate)
		}
		if err != nil {
			level.Warn(logger).Log("from", from, "packet", string(buf[:n]), "err", err)
		}
	}
}
