package perfmetrics

import (
	"context"
)

// Wrap returns f instrumented by m. The returned func resolves the active
// client on every call.
func Wrap(m *Metric, f func()) func() {
	name := m.namer(f)
	return func() {
		m.instrument(context.Background(), name, f, nil)
	}
}

// WrapErr is Wrap for functions returning an error. The error is passed
// through unchanged.
func WrapErr(m *Metric, f func() error) func() error {
	name := m.namer(f)
	return func() (err error) {
		m.instrument(context.Background(), name, func() { err = f() }, nil)
		return err
	}
}

// Wrap1 is Wrap for functions of one argument and one result.
func Wrap1[A, R any](m *Metric, f func(A) R) func(A) R {
	name := m.namer(f)
	return func(a A) (r R) {
		m.instrument(context.Background(), name, func() { r = f(a) }, nil)
		return r
	}
}

// Wrap2 is Wrap for functions of two arguments and one result.
func Wrap2[A, B, R any](m *Metric, f func(A, B) R) func(A, B) R {
	name := m.namer(f)
	return func(a A, b B) (r R) {
		m.instrument(context.Background(), name, func() { r = f(a, b) }, nil)
		return r
	}
}

// WrapCtx is Wrap for the common request/response shape. The client is
// resolved from the call's context first, see Resolve.
func WrapCtx[Req, Resp any](m *Metric, f func(context.Context, Req) (Resp, error)) func(context.Context, Req) (Resp, error) {
	name := m.namer(f)
	return func(ctx context.Context, req Req) (resp Resp, err error) {
		m.instrument(ctx, name, func() { resp, err = f(ctx, req) }, nil)
		return resp, err
	}
}
