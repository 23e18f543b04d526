package kit

import (
	"math"
	"strings"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/perfmetrics/perfmetrics"
	"github.com/perfmetrics/perfmetrics/statsd"
)

// Gauger is implemented by clients that can set gauges, such as
// *statsd.Client.
type Gauger interface {
	Gauge(stat string, value float64, rate float64, buf *statsd.Buffer) error
	GaugeDelta(stat string, delta float64, rate float64, buf *statsd.Buffer) error
}

// Provider constructs Go kit metrics that emit every observation
// immediately through a statsd client. Label values passed to With are
// appended to the stat name as dot-separated segments:
//
//	p.NewCounter("requests").With("method", "GET").Add(1) // requests.GET:1|c
type Provider struct {
	client     statsd.Emitter
	sampleRate float64
	logger     log.Logger
}

// ProviderOption changes some behavior of the provider.
type ProviderOption func(*Provider)

// WithSampleRate sets the sample rate of every constructed metric. By
// default the client's own rate applies.
func WithSampleRate(rate float64) ProviderOption {
	return func(p *Provider) { p.sampleRate = rate }
}

// WithLogger sets the logger used to report emission errors.
func WithLogger(logger log.Logger) ProviderOption {
	return func(p *Provider) { p.logger = logger }
}

// NewProvider returns a Provider emitting through client. If client is nil,
// each observation goes to the active perfmetrics client, and is dropped if
// there is none. Gauges require a client that also implements Gauger.
func NewProvider(client statsd.Emitter, options ...ProviderOption) *Provider {
	p := &Provider{
		client:     client,
		sampleRate: statsd.DefaultRate,
		logger:     log.NewNopLogger(),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// NewCounter returns a Counter mapped to a statsd counter. Deltas are
// rounded to whole numbers.
func (p *Provider) NewCounter(name string) *Counter {
	return &Counter{p: p, name: name}
}

// NewGauge returns a Gauge mapped to a statsd gauge.
func (p *Provider) NewGauge(name string) *Gauge {
	return &Gauge{p: p, name: name}
}

// NewTimer returns a Histogram mapped to a statsd timer. Observations must
// be in milliseconds.
func (p *Provider) NewTimer(name string) *Timer {
	return &Timer{p: p, name: name}
}

func (p *Provider) emitter() statsd.Emitter {
	if p.client != nil {
		return p.client
	}
	return perfmetrics.StatsdClient()
}

func (p *Provider) check(during, stat string, err error) {
	if err != nil {
		level.Error(p.logger).Log("during", during, "stat", stat, "err", err)
	}
}

// Counter is a statsd counter. Counters must be constructed via the
// Provider; the zero value of a Counter is not useful.
type Counter struct {
	p           *Provider
	name        string
	labelValues []string
}

// With implements metrics.Counter.
func (c *Counter) With(labelValues ...string) metrics.Counter {
	return &Counter{p: c.p, name: c.name, labelValues: with(c.labelValues, labelValues)}
}

// Add implements metrics.Counter.
func (c *Counter) Add(delta float64) {
	e := c.p.emitter()
	if e == nil {
		return
	}
	stat := render(c.name, c.labelValues)
	c.p.check("count", stat, e.Count(stat, int64(math.Round(delta)), c.p.sampleRate, nil))
}

// Gauge is a statsd gauge. Gauges must be constructed via the Provider; the
// zero value of a Gauge is not useful.
type Gauge struct {
	p           *Provider
	name        string
	labelValues []string
}

// With implements metrics.Gauge.
func (g *Gauge) With(labelValues ...string) metrics.Gauge {
	return &Gauge{p: g.p, name: g.name, labelValues: with(g.labelValues, labelValues)}
}

// Set implements metrics.Gauge.
func (g *Gauge) Set(value float64) {
	if gg, ok := g.p.emitter().(Gauger); ok {
		stat := render(g.name, g.labelValues)
		g.p.check("gauge", stat, gg.Gauge(stat, value, g.p.sampleRate, nil))
	}
}

// Add implements metrics.Gauge.
func (g *Gauge) Add(delta float64) {
	if gg, ok := g.p.emitter().(Gauger); ok {
		stat := render(g.name, g.labelValues)
		g.p.check("gauge", stat, gg.GaugeDelta(stat, delta, g.p.sampleRate, nil))
	}
}

// Timer is a statsd timer, modeled as a Go kit histogram. Timers must be
// constructed via the Provider; the zero value of a Timer is not useful.
type Timer struct {
	p           *Provider
	name        string
	labelValues []string
}

// With implements metrics.Histogram.
func (t *Timer) With(labelValues ...string) metrics.Histogram {
	return &Timer{p: t.p, name: t.name, labelValues: with(t.labelValues, labelValues)}
}

// Observe implements metrics.Histogram.
func (t *Timer) Observe(value float64) {
	e := t.p.emitter()
	if e == nil {
		return
	}
	stat := render(t.name, t.labelValues)
	t.p.check("timing", stat, e.Timing(stat, value, t.p.sampleRate, nil))
}

// with appends label/value pairs; an odd trailing label gets "unknown".
func with(existing, labelValues []string) []string {
	if len(labelValues)%2 != 0 {
		labelValues = append(labelValues, "unknown")
	}
	out := make([]string, 0, len(existing)+len(labelValues))
	return append(append(out, existing...), labelValues...)
}

// render appends each label value to name. Characters statsd cannot carry
// in a stat name are replaced with '_'.
func render(name string, labelValues []string) string {
	if len(labelValues) == 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	for i := 1; i < len(labelValues); i += 2 {
		b.WriteByte('.')
		b.WriteString(strings.Map(sanitize, labelValues[i]))
	}
	return b.String()
}

func sanitize(r rune) rune {
	if r < 0x21 || r > 0x7e || r == ':' || r == '|' {
		return '_'
	}
	return r
}

var (
	_ metrics.Counter   = (*Counter)(nil)
	_ metrics.Gauge     = (*Gauge)(nil)
	_ metrics.Histogram = (*Timer)(nil)
)
