package perfmetrics

import (
	"context"
	"math/rand"
	"reflect"
	"sync"
	"time"

	"github.com/go-kit/log/level"

	"github.com/perfmetrics/perfmetrics/statsd"
)

// Metric configures how wrapped calls are counted and timed. A Metric is
// immutable once constructed and may wrap any number of functions.
type Metric struct {
	stat       string
	sampleRate float64
	count      bool
	timing     bool
	method     bool
	random     func() float64
}

// MetricOption changes some behavior of a Metric.
type MetricOption func(*Metric)

// WithStat sets an explicit stat name. Without it, the name is derived from
// the wrapped function.
func WithStat(stat string) MetricOption {
	return func(m *Metric) { m.stat = stat }
}

// WithSampleRate instruments only a fraction of calls. The rate is clamped
// to [0,1].
func WithSampleRate(rate float64) MetricOption {
	if rate < 0.0 {
		rate = 0.0
	}
	if rate > 1.0 {
		rate = 1.0
	}
	return func(m *Metric) { m.sampleRate = rate }
}

// WithoutCount disables the per-call counter.
func WithoutCount() MetricOption {
	return func(m *Metric) { m.count = false }
}

// WithoutTiming disables the per-call timer.
func WithoutTiming() MetricOption {
	return func(m *Metric) { m.timing = false }
}

// AsMethod includes the receiver type in derived stat names:
// "<package>.<Type>.<Method>" rather than "<package>.<Method>".
func AsMethod() MetricOption {
	return func(m *Metric) { m.method = true }
}

// WithRandom replaces the source of sampling decisions. f must return
// values in [0,1) and be safe for concurrent use.
func WithRandom(f func() float64) MetricOption {
	return func(m *Metric) { m.random = f }
}

// NewMetric returns a Metric that, by default, counts and times every call.
func NewMetric(options ...MetricOption) *Metric {
	m := &Metric{
		sampleRate: 1,
		count:      true,
		timing:     true,
		random:     rand.Float64,
	}
	for _, option := range options {
		option(m)
	}
	return m
}

var (
	// Func counts and times plain functions.
	Func = NewMetric()

	// MethodMetric counts and times methods, naming them after their
	// receiver type.
	MethodMetric = NewMetric(AsMethod())
)

// Stat returns the explicit stat name, or "" if it is derived.
func (m *Metric) Stat() string { return m.stat }

// SampleRate returns the fraction of calls that are instrumented.
func (m *Metric) SampleRate() float64 { return m.sampleRate }

// Count reports whether calls are counted.
func (m *Metric) Count() bool { return m.count }

// Timing reports whether calls are timed.
func (m *Metric) Timing() bool { return m.timing }

// Method reports whether derived names include the receiver type.
func (m *Metric) Method() bool { return m.method }

// Observe runs f and emits its count and timing through the client resolved
// from ctx. The stat is the Metric's explicit name, or fallback if it has
// none.
func (m *Metric) Observe(ctx context.Context, fallback string, f func()) {
	m.ObserveWith(ctx, fallback, f, nil)
}

// ObserveWith is Observe with a hook for related stats. When the call is
// instrumented, extra runs after the count and timing are buffered and
// before the buffer is sent; whatever it adds to buf rides the same
// sampling decision and the same SendBuf. extra does not run for calls
// that are sampled out or have no client.
func (m *Metric) ObserveWith(ctx context.Context, fallback string, f func(), extra func(e statsd.Emitter, buf *statsd.Buffer)) {
	stat := m.stat
	if stat == "" {
		stat = fallback
	}
	m.instrument(ctx, func() string { return stat }, f, extra)
}

// instrument is the common path of every wrapper. With no active client, or
// nothing to emit, f runs alone. Otherwise one sampling decision covers
// both the count and the timing, which share a buffer and a single SendBuf.
// Emission happens in a deferred call, so a panic in f still flushes and
// then continues unwinding.
func (m *Metric) instrument(ctx context.Context, name func() string, f func(), extra func(statsd.Emitter, *statsd.Buffer)) {
	e := Resolve(ctx)
	if e == nil || (!m.count && !m.timing) {
		f()
		return
	}
	if m.sampleRate < 1 && m.random() >= m.sampleRate {
		f()
		return
	}

	start := time.Now()
	defer func() {
		m.emit(e, name(), time.Since(start), extra)
	}()
	f()
}

func (m *Metric) emit(e statsd.Emitter, stat string, elapsed time.Duration, extra func(statsd.Emitter, *statsd.Buffer)) {
	buf := &statsd.Buffer{Sampled: true}
	if m.count {
		if err := e.Count(stat, 1, m.sampleRate, buf); err != nil {
			level.Error(getLogger()).Log("during", "count", "stat", stat, "err", err)
		}
	}
	if m.timing {
		ms := float64(elapsed) / float64(time.Millisecond)
		if err := e.Timing(stat, ms, m.sampleRate, buf); err != nil {
			level.Error(getLogger()).Log("during", "timing", "stat", stat, "err", err)
		}
	}
	if extra != nil {
		extra(e, buf)
	}
	e.SendBuf(buf)
}

// namer returns the stat name for f, derived at most once, on first use.
func (m *Metric) namer(f interface{}) func() string {
	if m.stat != "" {
		stat := m.stat
		return func() string { return stat }
	}
	pc := reflect.ValueOf(f).Pointer()
	var (
		once sync.Once
		stat string
	)
	return func() string {
		once.Do(func() { stat = funcStat(pc, m.method) })
		return stat
	}
}

// StatName returns the stat name m uses for the function f.
func StatName(m *Metric, f interface{}) string {
	return m.namer(f)()
}
