// Command statsd sends metrics to a statsd collector from the shell, and can
// act as a debugging collector that prints what it receives.
//
//	statsd count deploys
//	statsd --uri 'statsd://metrics:8125?prefix=web.' timing render 12.5
//	statsd listen --addr :8125
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/perfmetrics/perfmetrics/statsd"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	stdout io.Writer
	stderr io.Writer
	logger log.Logger
}

func newApp(stdout, stderr io.Writer) *cli.App {
	a := &app{stdout: stdout, stderr: stderr, logger: log.NewNopLogger()}
	return &cli.App{
		Name:            "statsd",
		Usage:           "Send metrics to a statsd collector",
		HideHelpCommand: true,
		Writer:          stdout,
		ErrWriter:       stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "uri",
				Usage:   "Collector connection URI",
				Value:   "statsd://localhost:8125",
				EnvVars: []string{"STATSD_URI"},
			},
			&cli.StringFlag{
				Name:    "log.level",
				Usage:   "Logging level (debug/info/warn/error)",
				Value:   "info",
				EnvVars: []string{"STATSD_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print packets to stdout instead of sending them",
			},
		},
		Before: a.before,
		Commands: []*cli.Command{
			{
				Name:      "count",
				Usage:     "Add to a counter",
				ArgsUsage: "STAT [DELTA]",
				Flags:     []cli.Flag{rateFlag()},
				Action: a.emit(func(c *statsd.Client, ctx *cli.Context, stat string) error {
					delta := int64(1)
					if s := ctx.Args().Get(1); s != "" {
						n, err := strconv.ParseInt(s, 10, 64)
						if err != nil {
							return errors.Wrapf(err, "delta %q", s)
						}
						delta = n
					}
					return c.Count(stat, delta, ctx.Float64("rate"), nil)
				}),
			},
			{
				Name:      "gauge",
				Usage:     "Set or adjust a gauge",
				ArgsUsage: "STAT VALUE",
				Flags: []cli.Flag{rateFlag(), &cli.BoolFlag{
					Name:  "delta",
					Usage: "Adjust the gauge by VALUE instead of setting it",
				}},
				Action: a.emit(func(c *statsd.Client, ctx *cli.Context, stat string) error {
					v, err := floatArg(ctx, "value")
					if err != nil {
						return err
					}
					if ctx.Bool("delta") {
						return c.GaugeDelta(stat, v, ctx.Float64("rate"), nil)
					}
					return c.Gauge(stat, v, ctx.Float64("rate"), nil)
				}),
			},
			{
				Name:      "timing",
				Usage:     "Record a timing in milliseconds",
				ArgsUsage: "STAT MS",
				Flags:     []cli.Flag{rateFlag()},
				Action: a.emit(func(c *statsd.Client, ctx *cli.Context, stat string) error {
					ms, err := floatArg(ctx, "ms")
					if err != nil {
						return err
					}
					return c.Timing(stat, ms, ctx.Float64("rate"), nil)
				}),
			},
			{
				Name:      "set",
				Usage:     "Add a member to a set",
				ArgsUsage: "STAT MEMBER",
				Flags:     []cli.Flag{rateFlag()},
				Action: a.emit(func(c *statsd.Client, ctx *cli.Context, stat string) error {
					member := ctx.Args().Get(1)
					if member == "" {
						return errors.New("missing MEMBER")
					}
					return c.SetAdd(stat, member, ctx.Float64("rate"), nil)
				}),
			},
			{
				Name:  "listen",
				Usage: "Print every metric received on a UDP address",
				Flags: []cli.Flag{&cli.StringFlag{
					Name:  "addr",
					Usage: "UDP address to listen on",
					Value: ":8125",
				}},
				Action: a.listen,
			},
		},
	}
}

func rateFlag() cli.Flag {
	return &cli.Float64Flag{
		Name:  "rate",
		Usage: "Sample rate in (0,1]; the URI's sample_rate when omitted",
		Value: statsd.DefaultRate,
	}
}

func (a *app) before(ctx *cli.Context) error {
	var filter level.Option
	switch strings.ToLower(ctx.String("log.level")) {
	case "debug":
		filter = level.AllowDebug()
	case "info":
		filter = level.AllowInfo()
	case "warn":
		filter = level.AllowWarn()
	case "error":
		filter = level.AllowError()
	default:
		return errors.Errorf("unknown log level %q", ctx.String("log.level"))
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(a.stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	a.logger = level.NewFilter(logger, filter)
	return nil
}

// client builds the client for one command. In dry-run mode packets are
// written to stdout, one per line.
func (a *app) client(ctx *cli.Context) (*statsd.Client, error) {
	uri := ctx.String("uri")
	if ctx.Bool("dry-run") {
		ep, err := statsd.ParseURI(uri)
		if err != nil {
			return nil, err
		}
		return statsd.New(statsd.NewWriterTransport(a.stdout, a.logger), ep, statsd.WithLogger(a.logger)), nil
	}
	return statsd.DialURI(uri, statsd.WithLogger(a.logger))
}

func (a *app) emit(f func(c *statsd.Client, ctx *cli.Context, stat string) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		stat := ctx.Args().First()
		if stat == "" {
			return errors.New("missing STAT")
		}
		c, err := a.client(ctx)
		if err != nil {
			return err
		}
		defer c.Close()
		if err := f(c, ctx, stat); err != nil {
			return err
		}
		level.Debug(a.logger).Log("msg", "sent", "command", ctx.Command.Name, "stat", stat)
		return nil
	}
}

func floatArg(ctx *cli.Context, name string) (float64, error) {
	s := ctx.Args().Get(1)
	if s == "" {
		return 0, errors.Errorf("missing %s", strings.ToUpper(name))
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "%s %q", name, s)
	}
	return v, nil
}
