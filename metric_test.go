package perfmetrics

import (
	"context"
	"errors"
	"testing"

	"github.com/perfmetrics/perfmetrics/statsd"
	"github.com/perfmetrics/perfmetrics/statsd/statsdtest"
)

func addClient(t *testing.T) *statsdtest.Recorder {
	t.Helper()
	r := &statsdtest.Recorder{}
	t.Cleanup(Stack.Push(r))
	return r
}

var spamArgs [][2]int

func spam(x, y int) int {
	spamArgs = append(spamArgs, [2]int{x, y})
	return x + y
}

type Spam struct{ calls int }

func (s *Spam) F(x int) int {
	s.calls++
	return x * 2
}

type ValueSpam struct{}

func (ValueSpam) G() {}

func TestMetricDefaults(t *testing.T) {
	m := NewMetric()
	if m.Stat() != "" {
		t.Errorf("want no stat, have %q", m.Stat())
	}
	if want, have := 1.0, m.SampleRate(); want != have {
		t.Errorf("want %v, have %v", want, have)
	}
	if !m.Count() || !m.Timing() || m.Method() {
		t.Errorf("want count and timing, not method: %+v", m)
	}
}

func TestMetricOptions(t *testing.T) {
	m := NewMetric(WithStat("spam.n.eggs"), WithSampleRate(0.1), WithoutCount(), WithoutTiming(), AsMethod())
	if want, have := "spam.n.eggs", m.Stat(); want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if want, have := 0.1, m.SampleRate(); want != have {
		t.Errorf("want %v, have %v", want, have)
	}
	if m.Count() || m.Timing() || !m.Method() {
		t.Errorf("options not applied: %+v", m)
	}
	if want, have := 1.0, NewMetric(WithSampleRate(3)).SampleRate(); want != have {
		t.Errorf("clamp: want %v, have %v", want, have)
	}
}

func TestWrapFunction(t *testing.T) {
	reset(t)
	spamArgs = nil
	wrapped := Wrap2(Func, spam)

	if want, have := "perfmetrics.spam", StatName(Func, spam); want != have {
		t.Errorf("want %q, have %q", want, have)
	}

	// No client configured.
	if want, have := 9, wrapped(4, 5); want != have {
		t.Errorf("want %d, have %d", want, have)
	}
	if want, have := 1, len(spamArgs); want != have {
		t.Fatalf("want %d calls, have %d", want, have)
	}

	r := addClient(t)
	if want, have := 7, wrapped(6, 1); want != have {
		t.Errorf("want %d, have %d", want, have)
	}
	if want, have := [2]int{6, 1}, spamArgs[1]; want != have {
		t.Errorf("want %v, have %v", want, have)
	}

	counts, timings, sent := r.Counts(), r.Timings(), r.Sent()
	if want, have := 1, len(counts); want != have {
		t.Fatalf("want %d counts, have %d", want, have)
	}
	if c := counts[0]; c.Stat != "perfmetrics.spam" || c.Delta != 1 || c.Rate != 1 {
		t.Errorf("unexpected count %+v", c)
	}
	if want, have := 1, len(timings); want != have {
		t.Fatalf("want %d timings, have %d", want, have)
	}
	if tm := timings[0]; tm.Stat != "perfmetrics.spam" || tm.MS < 0 || tm.MS >= 10000 || tm.Rate != 1 {
		t.Errorf("unexpected timing %+v", tm)
	}
	if want, have := 1, len(sent); want != have {
		t.Fatalf("want %d SendBuf calls, have %d", want, have)
	}
	if counts[0].Buf != sent[0] || timings[0].Buf != sent[0] {
		t.Error("count and timing did not share the flushed buffer")
	}
	if !sent[0].Sampled {
		t.Error("buffer not marked as sampled")
	}
}

func TestWrapMethod(t *testing.T) {
	reset(t)
	r := addClient(t)

	a, b := &Spam{}, &Spam{}
	fa := Wrap1(MethodMetric, a.F)
	fb := Wrap1(MethodMetric, b.F)
	if want, have := 8, fa(4); want != have {
		t.Errorf("want %d, have %d", want, have)
	}
	fb(1)
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("calls not delivered to receivers: %d, %d", a.calls, b.calls)
	}

	counts := r.Counts()
	if want, have := 2, len(counts); want != have {
		t.Fatalf("want %d counts, have %d", want, have)
	}
	for _, c := range counts {
		if want, have := "perfmetrics.Spam.F", c.Stat; want != have {
			t.Errorf("want %q, have %q", want, have)
		}
	}
	for _, tm := range r.Timings() {
		if want, have := "perfmetrics.Spam.F", tm.Stat; want != have {
			t.Errorf("want %q, have %q", want, have)
		}
	}

	if want, have := "perfmetrics.F", StatName(Func, a.F); want != have {
		t.Errorf("without AsMethod: want %q, have %q", want, have)
	}
	if want, have := "perfmetrics.Spam.F", StatName(MethodMetric, (*Spam).F); want != have {
		t.Errorf("method expression: want %q, have %q", want, have)
	}
	if want, have := "perfmetrics.ValueSpam.G", StatName(MethodMetric, ValueSpam{}.G); want != have {
		t.Errorf("value receiver: want %q, have %q", want, have)
	}
}

func TestWrapWithOptions(t *testing.T) {
	reset(t)
	m := NewMetric(WithStat("spammy"), WithSampleRate(0.1), WithoutTiming(), WithRandom(func() float64 { return 0.05 }))
	var calls int
	f := Wrap(m, func() { calls++ })

	f()
	r := addClient(t)
	f()
	if want, have := 2, calls; want != have {
		t.Errorf("want %d calls, have %d", want, have)
	}

	counts := r.Counts()
	if want, have := 1, len(counts); want != have {
		t.Fatalf("want %d counts, have %d", want, have)
	}
	if c := counts[0]; c.Stat != "spammy" || c.Delta != 1 || c.Rate != 0.1 {
		t.Errorf("unexpected count %+v", c)
	}
	if n := len(r.Timings()); n != 0 {
		t.Errorf("want no timings, have %d", n)
	}
}

func TestWrapSampledOut(t *testing.T) {
	reset(t)
	r := addClient(t)
	m := NewMetric(WithSampleRate(0.1), WithRandom(func() float64 { return 0.5 }))
	var calls int
	Wrap(m, func() { calls++ })()
	if want, have := 1, calls; want != have {
		t.Errorf("want %d calls, have %d", want, have)
	}
	if len(r.Counts())+len(r.Timings())+len(r.Sent()) != 0 {
		t.Error("sampled-out call emitted")
	}
}

func TestWrapNothingToEmit(t *testing.T) {
	reset(t)
	r := addClient(t)
	m := NewMetric(WithoutCount(), WithoutTiming())
	var calls int
	Wrap(m, func() { calls++ })()
	if want, have := 1, calls; want != have {
		t.Errorf("want %d calls, have %d", want, have)
	}
	if len(r.Sent()) != 0 {
		t.Error("SendBuf called with nothing to emit")
	}
}

func TestWrapErrPassesThrough(t *testing.T) {
	reset(t)
	r := addClient(t)
	want := errors.New("failed")
	f := WrapErr(NewMetric(WithStat("job")), func() error { return want })
	if have := f(); want != have {
		t.Errorf("want %v, have %v", want, have)
	}
	if want, have := 1, len(r.Sent()); want != have {
		t.Errorf("want %d flushes, have %d", want, have)
	}
}

func TestWrapPanicPropagatesAfterFlush(t *testing.T) {
	reset(t)
	r := addClient(t)
	f := Wrap(NewMetric(WithStat("boom")), func() { panic("boom") })

	defer func() {
		if v := recover(); v != "boom" {
			t.Errorf("want panic %q, have %v", "boom", v)
		}
		if want, have := 1, len(r.Sent()); want != have {
			t.Errorf("want %d flushes, have %d", want, have)
		}
		if want, have := 1, len(r.Counts()); want != have {
			t.Errorf("want %d counts, have %d", want, have)
		}
	}()
	f()
	t.Fatal("panic was swallowed")
}

func TestWrapCtxUsesContextClient(t *testing.T) {
	reset(t)
	stacked := addClient(t)
	perRequest := &statsdtest.Recorder{}

	f := WrapCtx(NewMetric(WithStat("handle")), func(ctx context.Context, n int) (string, error) {
		return "ok", nil
	})
	resp, err := f(NewContext(context.Background(), perRequest), 1)
	if err != nil || resp != "ok" {
		t.Fatalf("want ok, have %q, %v", resp, err)
	}
	if want, have := 1, len(perRequest.Counts()); want != have {
		t.Errorf("context client: want %d counts, have %d", want, have)
	}
	if n := len(stacked.Counts()); n != 0 {
		t.Errorf("stacked client used despite context client: %d counts", n)
	}

	f(context.Background(), 2)
	if want, have := 1, len(stacked.Counts()); want != have {
		t.Errorf("stacked client: want %d counts, have %d", want, have)
	}
}

func TestObserveFallbackStat(t *testing.T) {
	reset(t)
	r := addClient(t)
	Func.Observe(context.Background(), "http.GET", func() {})
	NewMetric(WithStat("explicit")).Observe(context.Background(), "http.GET", func() {})
	counts := r.Counts()
	if len(counts) != 2 || counts[0].Stat != "http.GET" || counts[1].Stat != "explicit" {
		t.Errorf("unexpected counts %+v", counts)
	}
}

func TestWrapThroughRealClient(t *testing.T) {
	reset(t)
	l := statsdtest.NewListener(t)
	if err := SetStatsdClient(l.URI() + "?prefix=app."); err != nil {
		t.Fatal(err)
	}
	Wrap2(Func, spam)(1, 2)

	lines := l.Lines(t)
	if want, have := 2, len(lines); want != have {
		t.Fatalf("want %d lines in one packet, have %+v", want, lines)
	}
	if l := lines[0]; l.Stat != "app.perfmetrics.spam" || l.Kind != statsd.Counter || l.Value != "1" {
		t.Errorf("unexpected count line %+v", l)
	}
	if l := lines[1]; l.Stat != "app.perfmetrics.spam" || l.Kind != statsd.Timer {
		t.Errorf("unexpected timing line %+v", l)
	}
}

func TestMetricMod(t *testing.T) {
	reset(t)
	r := addClient(t)
	f := Wrap(NewMetric(WithStat("job"), WithoutTiming()), func() {})

	MetricMod("worker.%s", func() {
		f()
		MetricMod("inner.%s", f)
	})
	f()

	counts := r.Counts()
	want := []string{"worker.job", "worker.inner.job", "job"}
	if len(counts) != len(want) {
		t.Fatalf("want %d counts, have %d", len(want), len(counts))
	}
	for i := range want {
		if want[i] != counts[i].Stat {
			t.Errorf("want %q, have %q", want[i], counts[i].Stat)
		}
	}
}

func TestMetricModWithoutClient(t *testing.T) {
	reset(t)
	var ran bool
	MetricMod("x.%s", func() { ran = true })
	if !ran {
		t.Error("f did not run")
	}
	if Stack.Len() != 0 {
		t.Error("MetricMod pushed without a client")
	}
}
