// Package http instruments net/http handlers with perfmetrics.
package http

import (
	"net/http"

	"github.com/go-kit/log/level"

	"github.com/perfmetrics/perfmetrics"
	"github.com/perfmetrics/perfmetrics/statsd"
)

// ClientHandler serves next with e as the active client for the duration of
// each request. The client travels in the request context, so concurrent
// requests never see each other's client and nothing process-wide changes.
func ClientHandler(e statsd.Emitter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(perfmetrics.NewContext(r.Context(), e)))
	})
}

// InstrumentHandler counts and times every request under stat, unless m
// carries its own stat name, and counts responses by status class under
// "<stat>.status.<class>", e.g. "api.status.5xx", in the same packet. A
// panicking handler is still counted and timed; its status is "unknown"
// unless it already wrote a header.
func InstrumentHandler(m *perfmetrics.Metric, stat string, next http.Handler) http.Handler {
	if m.Stat() != "" {
		stat = m.Stat()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		iw := &interceptingWriter{ResponseWriter: w, code: http.StatusOK}
		m.ObserveWith(r.Context(), stat, func() {
			completed := false
			defer func() {
				if !completed && !iw.wroteHeader {
					iw.code = 0
				}
			}()
			next.ServeHTTP(iw, r)
			completed = true
		}, func(e statsd.Emitter, buf *statsd.Buffer) {
			if !m.Count() {
				return
			}
			name := stat + ".status." + iw.class()
			if err := e.Count(name, 1, m.SampleRate(), buf); err != nil {
				level.Error(perfmetrics.Logger()).Log("during", "count", "stat", name, "err", err)
			}
		})
	})
}
