// Package statsdtest provides helpers for testing code that emits statsd
// metrics: an in-memory Recorder implementing statsd.Emitter, and a
// loopback UDP Listener that parses what real clients send.
package statsdtest

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/perfmetrics/perfmetrics/statsd"
)

// CountCall is one recorded Count.
type CountCall struct {
	Stat  string
	Delta int64
	Rate  float64
	Buf   *statsd.Buffer
}

// TimingCall is one recorded Timing.
type TimingCall struct {
	Stat string
	MS   float64
	Rate float64
	Buf  *statsd.Buffer
}

// Recorder is a statsd.Emitter that records every call.
type Recorder struct {
	mtx     sync.Mutex
	counts  []CountCall
	timings []TimingCall
	sent    []*statsd.Buffer
}

// Count implements statsd.Emitter.
func (r *Recorder) Count(stat string, delta int64, rate float64, buf *statsd.Buffer) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.counts = append(r.counts, CountCall{stat, delta, rate, buf})
	return nil
}

// Timing implements statsd.Emitter.
func (r *Recorder) Timing(stat string, ms float64, rate float64, buf *statsd.Buffer) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.timings = append(r.timings, TimingCall{stat, ms, rate, buf})
	return nil
}

// SendBuf implements statsd.Emitter.
func (r *Recorder) SendBuf(buf *statsd.Buffer) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.sent = append(r.sent, buf)
}

// Counts returns the recorded Count calls.
func (r *Recorder) Counts() []CountCall {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([]CountCall(nil), r.counts...)
}

// Timings returns the recorded Timing calls.
func (r *Recorder) Timings() []TimingCall {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([]TimingCall(nil), r.timings...)
}

// Sent returns the buffers passed to SendBuf.
func (r *Recorder) Sent() []*statsd.Buffer {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([]*statsd.Buffer(nil), r.sent...)
}

// Listener is a UDP collector bound to a loopback port.
type Listener struct {
	conn    net.PacketConn
	packets chan []byte
	done    chan struct{}
}

// NewListener starts a Listener that is closed when the test ends.
func NewListener(t testing.TB) *Listener {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	l := &Listener{conn: conn, packets: make(chan []byte, 64), done: make(chan struct{})}
	go l.loop()
	t.Cleanup(func() {
		close(l.done)
		conn.Close()
	})
	return l
}

func (l *Listener) loop() {
	defer close(l.packets)
	buf := make([]byte, 65536)
	for {
		n, _, err := l.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		select {
		case l.packets <- append([]byte(nil), buf[:n]...):
		case <-l.done:
			return
		}
	}
}

// Addr returns the host:port the listener is bound to.
func (l *Listener) Addr() string { return l.conn.LocalAddr().String() }

// URI returns a statsd:// connection URI for the listener.
func (l *Listener) URI() string { return "statsd://" + l.Addr() }

// Packet waits up to timeout for the next datagram.
func (l *Listener) Packet(timeout time.Duration) ([]byte, bool) {
	select {
	case p, ok := <-l.packets:
		return p, ok
	case <-time.After(timeout):
		return nil, false
	}
}

// Lines waits for the next datagram and parses it, failing the test if none
// arrives within a second or it does not parse.
func (l *Listener) Lines(t testing.TB) []statsd.Line {
	t.Helper()
	p, ok := l.Packet(time.Second)
	if !ok {
		t.Fatal("timeout waiting for statsd packet")
	}
	lines, err := statsd.ParsePacket(p)
	if err != nil {
		t.Fatalf("parse %q: %v", p, err)
	}
	return lines
}
