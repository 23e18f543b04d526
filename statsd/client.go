// Package statsd is a client for statsd-compatible collectors.
//
// Observations are encoded as "stat:value|kind[|@rate]" lines and sent over
// UDP, either immediately or, when a Buffer is passed, later and together
// via SendBuf. Delivery is best-effort: transport failures are logged and
// dropped, never returned.
//
//	c, err := statsd.DialURI("statsd://localhost:8125?prefix=myapp.")
//	if err != nil {
//		// handle error
//	}
//	c.Increment("requests", statsd.DefaultRate, nil)
//
//	var buf statsd.Buffer
//	c.Count("jobs", 3, 1, &buf)
//	c.Timing("jobs", 12.5, 1, &buf)
//	c.SendBuf(&buf) // one datagram
package statsd

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// DefaultRate, passed as a sample rate, selects the client's configured
// rate. Any negative rate has the same effect.
const DefaultRate = -1.0

// Emitter is the set of operations the instrumentation layer needs from a
// client. Client implements it, as do test recorders and wrappers that
// rewrite stat names.
type Emitter interface {
	Count(stat string, delta int64, rate float64, buf *Buffer) error
	Timing(stat string, ms float64, rate float64, buf *Buffer) error
	SendBuf(buf *Buffer)
}

// Client encodes, samples, buffers and transmits metrics. It is safe for
// concurrent use.
type Client struct {
	t      Transport
	ep     Endpoint
	logger log.Logger

	mtx sync.Mutex
	rnd *rand.Rand

	oversize uint64
}

// Option changes some behavior of a Client.
type Option func(*Client)

// WithLogger sets the logger used by the client and its transport.
func WithLogger(logger log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRand sets the random source for sampling decisions. The source is
// guarded by the client, so it may be shared with nothing else.
func WithRand(r *rand.Rand) Option {
	return func(c *Client) { c.rnd = r }
}

// New returns a client sending through t.
func New(t Transport, ep Endpoint, options ...Option) *Client {
	c := &Client{
		t:      t,
		ep:     ep,
		logger: log.NewNopLogger(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Dial returns a client sending to ep over UDP.
func Dial(ep Endpoint, options ...Option) (*Client, error) {
	c := New(nil, ep, options...)
	t, err := DialUDP(ep.Address(), TransportLogger(log.With(c.logger, "component", "statsd")))
	if err != nil {
		return nil, err
	}
	c.t = t
	return c, nil
}

// DialURI parses uri with ParseURI and dials the resulting endpoint.
func DialURI(uri string, options ...Option) (*Client, error) {
	ep, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	return Dial(ep, options...)
}

// Endpoint returns the client's endpoint.
func (c *Client) Endpoint() Endpoint { return c.ep }

// Prefix returns the prefix prepended to every stat.
func (c *Client) Prefix() string { return c.ep.Prefix }

// GaugeSuffix returns the suffix appended to gauge stats.
func (c *Client) GaugeSuffix() string { return c.ep.GaugeSuffix }

// SampleRate returns the rate applied when DefaultRate is passed.
func (c *Client) SampleRate() float64 { return c.ep.sampleRate() }

// Count adds delta to a counter.
func (c *Client) Count(stat string, delta int64, rate float64, buf *Buffer) error {
	return c.emit(rate, buf, Line{Stat: c.ep.Prefix + stat, Value: strconv.FormatInt(delta, 10), Kind: Counter})
}

// Increment adds 1 to a counter.
func (c *Client) Increment(stat string, rate float64, buf *Buffer) error {
	return c.Count(stat, 1, rate, buf)
}

// Decrement subtracts 1 from a counter.
func (c *Client) Decrement(stat string, rate float64, buf *Buffer) error {
	return c.Count(stat, -1, rate, buf)
}

// Gauge sets a gauge to value. Collectors read a signed gauge value as a
// relative change, so a negative value is sent as a reset to zero followed
// by a decrease, in the same packet.
func (c *Client) Gauge(stat string, value float64, rate float64, buf *Buffer) error {
	name := c.ep.Prefix + stat + c.ep.GaugeSuffix
	if value < 0 {
		return c.emit(rate, buf,
			Line{Stat: name, Value: "0", Kind: Gauge},
			Line{Stat: name, Value: FormatValue(-value), Kind: GaugeDecrease},
		)
	}
	return c.emit(rate, buf, Line{Stat: name, Value: FormatValue(value), Kind: Gauge})
}

// GaugeDelta adjusts a gauge by delta relative to its current value.
func (c *Client) GaugeDelta(stat string, delta float64, rate float64, buf *Buffer) error {
	kind := GaugeIncrease
	if delta < 0 {
		kind, delta = GaugeDecrease, -delta
	}
	return c.emit(rate, buf, Line{Stat: c.ep.Prefix + stat + c.ep.GaugeSuffix, Value: FormatValue(delta), Kind: kind})
}

// Timing records an elapsed time in milliseconds.
func (c *Client) Timing(stat string, ms float64, rate float64, buf *Buffer) error {
	return c.emit(rate, buf, Line{Stat: c.ep.Prefix + stat, Value: FormatValue(ms), Kind: Timer})
}

// Duration records d as a timing.
func (c *Client) Duration(stat string, d time.Duration, rate float64, buf *Buffer) error {
	return c.Timing(stat, float64(d)/float64(time.Millisecond), rate, buf)
}

// SetAdd adds value to a set; the collector counts distinct values.
func (c *Client) SetAdd(stat string, value string, rate float64, buf *Buffer) error {
	return c.emit(rate, buf, Line{Stat: c.ep.Prefix + stat, Value: value, Kind: Set})
}

// SendBuf transmits the buffered lines in as few packets as the maximum
// packet size allows. The buffer is left untouched.
func (c *Client) SendBuf(buf *Buffer) {
	if buf.Len() == 0 {
		return
	}
	c.send(buf.Lines())
}

// Dropped returns the number of observations rejected for exceeding the
// maximum packet size, plus the packets the transport could not write if
// it counts them.
func (c *Client) Dropped() uint64 {
	n := atomic.LoadUint64(&c.oversize)
	if d, ok := c.t.(interface{ Dropped() uint64 }); ok {
		n += d.Dropped()
	}
	return n
}

// Close releases the transport.
func (c *Client) Close() error {
	if c.t == nil {
		return nil
	}
	return c.t.Close()
}

// emit validates and encodes lines, makes one sampling decision for all of
// them, and then buffers or sends them. The lines of one observation form a
// single unit that always travels in one packet; a unit that cannot fit in
// a packet is rejected.
func (c *Client) emit(rate float64, buf *Buffer, lines ...Line) error {
	if rate < 0 || math.IsNaN(rate) {
		rate = c.ep.sampleRate()
	}
	if rate > 1 {
		rate = 1
	}

	encoded := make([]string, len(lines))
	for i, l := range lines {
		l.Rate = rate
		s, err := l.Encode()
		if err != nil {
			return err
		}
		encoded[i] = s
	}
	unit := strings.Join(encoded, "\n")
	if max := c.ep.maxPacketSize(); len(unit) > max {
		atomic.AddUint64(&c.oversize, 1)
		err := &PacketTooLargeError{Stat: lines[0].Stat, Size: len(unit), Max: max}
		level.Warn(c.logger).Log("during", "emit", "stat", lines[0].Stat, "err", err)
		return err
	}

	if (buf == nil || !buf.Sampled) && !c.sample(rate) {
		return nil
	}
	if buf != nil {
		buf.Append(unit)
		return nil
	}
	c.send([]string{unit})
	return nil
}

func (c *Client) send(lines []string) {
	if c.t == nil {
		return
	}
	for _, p := range Pack(lines, c.ep.maxPacketSize()) {
		c.t.Send(p)
	}
}

func (c *Client) sample(rate float64) bool {
	if rate >= 1 {
		return true
	}
	return c.random() < rate
}

func (c *Client) random() float64 {
	if c.rnd == nil {
		return rand.Float64()
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.rnd.Float64()
}
