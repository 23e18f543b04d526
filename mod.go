package perfmetrics

import (
	"fmt"

	"github.com/perfmetrics/perfmetrics/statsd"
)

// ClientMod is an Emitter that rewrites stat names with a fmt format
// containing one %s verb, then forwards to another Emitter.
//
//	NewClientMod(c, "worker3.%s").Count("jobs", 1, 1, nil) // worker3.jobs
type ClientMod struct {
	next   statsd.Emitter
	format string
}

// NewClientMod returns a ClientMod forwarding to next.
func NewClientMod(next statsd.Emitter, format string) *ClientMod {
	return &ClientMod{next: next, format: format}
}

// Count implements statsd.Emitter.
func (c *ClientMod) Count(stat string, delta int64, rate float64, buf *statsd.Buffer) error {
	return c.next.Count(c.Mod(stat), delta, rate, buf)
}

// Timing implements statsd.Emitter.
func (c *ClientMod) Timing(stat string, ms float64, rate float64, buf *statsd.Buffer) error {
	return c.next.Timing(c.Mod(stat), ms, rate, buf)
}

// SendBuf implements statsd.Emitter.
func (c *ClientMod) SendBuf(buf *statsd.Buffer) { c.next.SendBuf(buf) }

// Mod returns the rewritten stat name.
func (c *ClientMod) Mod(stat string) string { return fmt.Sprintf(c.format, stat) }

// MetricMod runs f with stat names of the active client rewritten by
// format. Nested calls compose, innermost first. With no active client, f
// simply runs.
func MetricMod(format string, f func()) {
	e := StatsdClient()
	if e == nil {
		f()
		return
	}
	With(NewClientMod(e, format), f)
}
