// Package kit connects perfmetrics to Go kit: an endpoint middleware that
// counts and times endpoint calls, and a Provider of Go kit metrics backed
// by a statsd client.
package kit

import (
	"context"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/log/level"

	"github.com/perfmetrics/perfmetrics"
	"github.com/perfmetrics/perfmetrics/statsd"
)

// EndpointMiddleware returns an endpoint.Middleware that counts and times
// every call of the wrapped endpoint under stat, unless m carries its own
// stat name. The client is resolved from the request context, see
// perfmetrics.Resolve.
//
// Calls that return an error, or a response whose Failed method reports
// one, additionally increment "<stat>.errors" in the same packet, when m
// counts calls.
func EndpointMiddleware(m *perfmetrics.Metric, stat string) endpoint.Middleware {
	if m.Stat() != "" {
		stat = m.Stat()
	}
	errorStat := stat + ".errors"
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (response interface{}, err error) {
			m.ObserveWith(ctx, stat, func() {
				response, err = next(ctx, request)
			}, func(e statsd.Emitter, buf *statsd.Buffer) {
				if !m.Count() || !failed(response, err) {
					return
				}
				if cerr := e.Count(errorStat, 1, m.SampleRate(), buf); cerr != nil {
					level.Error(perfmetrics.Logger()).Log("during", "count", "stat", errorStat, "err", cerr)
				}
			})
			return response, err
		}
	}
}

func failed(response interface{}, err error) bool {
	if err != nil {
		return true
	}
	f, ok := response.(endpoint.Failer)
	return ok && f.Failed() != nil
}
