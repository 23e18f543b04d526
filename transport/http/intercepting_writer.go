package http

import (
	"net/http"
)

// interceptingWriter records the status code written by a handler.
type interceptingWriter struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

// WriteHeader may not be explicitly called, so care must be taken to
// initialize w.code to its default value of http.StatusOK.
func (w *interceptingWriter) WriteHeader(code int) {
	w.code = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *interceptingWriter) Write(p []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(p)
}

// Flush implements http.Flusher when the wrapped writer does.
func (w *interceptingWriter) Flush() {
	if fl, ok := w.ResponseWriter.(http.Flusher); ok {
		fl.Flush()
	}
}

// Unwrap lets http.ResponseController reach the wrapped writer.
func (w *interceptingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// class returns the status class, e.g. "2xx".
func (w *interceptingWriter) class() string {
	if w.code < 100 || w.code > 599 {
		return "unknown"
	}
	return string(rune('0'+w.code/100)) + "xx"
}
