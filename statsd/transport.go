package statsd

import (
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Transport delivers encoded packets. Send is best-effort: it never blocks
// for long and never reports failure to the caller.
type Transport interface {
	Send(p []byte)
	Close() error
}

// Dialer dials a network and address. net.Dial is a good default Dialer.
type Dialer func(network, address string) (net.Conn, error)

var errNotConnected = errors.New("statsd: not connected")

// UDPTransport sends packets over a UDP socket connected to a single remote
// address, so no per-send address resolution happens. A socket that fails a
// write is discarded and re-dialed on a later Send; if dialing fails, further
// attempts are delayed by an exponential backoff. Packets that cannot be
// written are dropped, never retried.
type UDPTransport struct {
	dial    Dialer
	address string
	logger  log.Logger
	limit   *rate.Limiter
	now     func() time.Time

	mtx      sync.Mutex
	conn     net.Conn
	backoff  time.Duration
	redialAt time.Time
	closed   bool

	dropped uint64
}

// TransportOption changes some behavior of a UDPTransport.
type TransportOption func(*UDPTransport)

// TransportLogger sets the logger used to report dropped packets. Reports
// are rate limited to one per second with a small burst.
func TransportLogger(logger log.Logger) TransportOption {
	return func(t *UDPTransport) { t.logger = logger }
}

// TransportDialer replaces net.Dial. This is primarily useful for tests.
func TransportDialer(d Dialer) TransportOption {
	return func(t *UDPTransport) { t.dial = d }
}

// DialUDP opens a UDP socket connected to address. It fails only if the
// address cannot be resolved or the socket cannot be created.
func DialUDP(address string, options ...TransportOption) (*UDPTransport, error) {
	t := &UDPTransport{
		dial:    net.Dial,
		address: address,
		logger:  log.NewNopLogger(),
		limit:   rate.NewLimiter(rate.Every(time.Second), 5),
		now:     time.Now,
		backoff: time.Second,
	}
	for _, option := range options {
		option(t)
	}
	conn, err := t.dial("udp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "statsd: dial %s", address)
	}
	t.conn = conn
	return t, nil
}

// Send writes p as a single datagram.
func (t *UDPTransport) Send(p []byte) {
	conn, err := t.take()
	if err != nil {
		t.drop(err)
		return
	}
	if _, err := conn.Write(p); err != nil {
		t.drop(err)
		t.invalidate(conn)
	}
}

// Dropped returns the number of packets that could not be written.
func (t *UDPTransport) Dropped() uint64 {
	return atomic.LoadUint64(&t.dropped)
}

// Close releases the socket. Subsequent sends are dropped.
func (t *UDPTransport) Close() error {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.closed = true
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *UDPTransport) take() (net.Conn, error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.closed {
		return nil, errors.New("statsd: transport closed")
	}
	if t.conn != nil {
		return t.conn, nil
	}
	if t.now().Before(t.redialAt) {
		return nil, errNotConnected
	}
	conn, err := t.dial("udp", t.address)
	if err != nil {
		t.backoff = exponential(t.backoff)
		t.redialAt = t.now().Add(t.backoff)
		return nil, errors.Wrapf(err, "statsd: redial %s", t.address)
	}
	t.backoff = time.Second
	t.conn = conn
	return conn, nil
}

// invalidate discards conn after a failed write; the next Send redials
// immediately.
func (t *UDPTransport) invalidate(conn net.Conn) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.conn != conn {
		return
	}
	conn.Close()
	t.conn = nil
	t.redialAt = time.Time{}
}

func (t *UDPTransport) drop(err error) {
	n := atomic.AddUint64(&t.dropped, 1)
	if t.limit.Allow() {
		level.Warn(t.logger).Log("during", "send", "address", t.address, "dropped", n, "err", err)
	}
}

func exponential(d time.Duration) time.Duration {
	d *= 2
	if d > time.Minute {
		d = time.Minute
	}
	return d
}

// WriterTransport writes each packet, followed by a newline, to an
// io.Writer. Write errors are logged and otherwise ignored.
type WriterTransport struct {
	mtx    sync.Mutex
	w      io.Writer
	logger log.Logger
}

// NewWriterTransport returns a Transport writing to w.
func NewWriterTransport(w io.Writer, logger log.Logger) *WriterTransport {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &WriterTransport{w: w, logger: logger}
}

// Send implements Transport.
func (t *WriterTransport) Send(p []byte) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	buf := make([]byte, 0, len(p)+1)
	buf = append(append(buf, p...), '\n')
	if _, err := t.w.Write(buf); err != nil {
		level.Warn(t.logger).Log("during", "send", "err", err)
	}
}

// Close implements Transport. The underlying writer is not closed.
func (t *WriterTransport) Close() error { return nil }
