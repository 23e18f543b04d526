// Package perfmetrics instruments functions with statsd counters and timers.
//
// A Metric wraps a function so that every call is counted and timed through
// the active client. The active client is resolved at call time: a client
// carried by the context (see NewContext) wins, then the top of the
// process-wide Stack, then the default set with SetStatsdClient. With no
// client configured, instrumentation is a no-op.
//
//	perfmetrics.SetStatsdClient("statsd://localhost:8125")
//	defer perfmetrics.SetStatsdClient(nil)
//
//	process := perfmetrics.Wrap1(perfmetrics.Func, process)
//	process(job) // myapp.process:1|c and myapp.process:0.42|ms
package perfmetrics

import (
	"context"
	"io"
	"reflect"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/perfmetrics/perfmetrics/statsd"
)

var (
	mtx      sync.RWMutex
	current  statsd.Emitter
	owned    io.Closer // non-nil when current was built from a URI here
	logger   log.Logger = log.NewNopLogger()
	loggerMu sync.RWMutex
)

// SetStatsdClient sets or clears the process-wide default client. v may be
//
//   - nil, which clears the default;
//   - a connection URI string, dialed with statsd.DialURI and options;
//   - any non-nil statsd.Emitter, used as-is.
//
// A client previously built here from a URI is closed when replaced.
func SetStatsdClient(v interface{}, options ...statsd.Option) error {
	var (
		next   statsd.Emitter
		closer io.Closer
	)
	switch x := v.(type) {
	case nil:
	case string:
		c, err := statsd.DialURI(x, options...)
		if err != nil {
			return err
		}
		next, closer = c, c
	case statsd.Emitter:
		if isNil(x) {
			return errors.Errorf("perfmetrics: nil %T statsd client", v)
		}
		next = x
	default:
		return errors.Errorf("perfmetrics: unsupported statsd client %T", v)
	}

	mtx.Lock()
	prev := owned
	current, owned = next, closer
	mtx.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			level.Warn(getLogger()).Log("during", "close", "err", err)
		}
	}
	return nil
}

// isNil reports whether e holds a nil pointer, map, func or similar.
func isNil(e statsd.Emitter) bool {
	v := reflect.ValueOf(e)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Func, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// DefaultClient returns the process-wide default client, ignoring the Stack.
func DefaultClient() statsd.Emitter {
	mtx.RLock()
	defer mtx.RUnlock()
	return current
}

// StatsdClient returns the active client: the top of Stack if it is not
// empty, else the default client, else nil.
func StatsdClient() statsd.Emitter {
	if e := Stack.Get(); e != nil {
		return e
	}
	return DefaultClient()
}

type contextKey struct{}

// NewContext returns a context carrying e. Resolve prefers it over the
// Stack and the default, which lets a request use its own client without
// touching process-wide state.
func NewContext(ctx context.Context, e statsd.Emitter) context.Context {
	return context.WithValue(ctx, contextKey{}, e)
}

// FromContext returns the client carried by ctx, or nil.
func FromContext(ctx context.Context) statsd.Emitter {
	if ctx == nil {
		return nil
	}
	e, _ := ctx.Value(contextKey{}).(statsd.Emitter)
	return e
}

// Resolve returns the client carried by ctx, else StatsdClient().
func Resolve(ctx context.Context) statsd.Emitter {
	if e := FromContext(ctx); e != nil {
		return e
	}
	return StatsdClient()
}

// SetLogger sets the logger used to report emission errors from
// instrumented calls, such as invalid stat names.
func SetLogger(l log.Logger) {
	if l == nil {
		l = log.NewNopLogger()
	}
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

// Logger returns the logger set with SetLogger.
func Logger() log.Logger { return getLogger() }

func getLogger() log.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}
