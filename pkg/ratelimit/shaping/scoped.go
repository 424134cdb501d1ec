package shaping

import (
	"context"
)

type options struct {
	weight int
}

// Option configures Do and Wrap.
type Option func(*options)

// WithWeight sets the number of units acquired on entry. The default is 1.
func WithWeight(n int) Option {
	return func(o *options) {
		o.weight = n
	}
}

func buildOptions(opts []Option) options {
	o := options{weight: 1}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Do acquires capacity from a and then runs fn. Nothing is given back when
// fn returns: admitted capacity is consumed, not borrowed. fn does not run
// if acquisition fails.
func Do(ctx context.Context, a Acquirer, fn func(ctx context.Context) error, opts ...Option) error {
	o := buildOptions(opts)
	if err := a.AcquireN(ctx, o.weight); err != nil {
		return err
	}
	return fn(ctx)
}

// Wrap returns a function that runs fn under Do on every call.
func Wrap[T any](a Acquirer, fn func(ctx context.Context) (T, error), opts ...Option) func(ctx context.Context) (T, error) {
	o := buildOptions(opts)
	return func(ctx context.Context) (T, error) {
		if err := a.AcquireN(ctx, o.weight); err != nil {
			var zero T
			return zero, err
		}
		return fn(ctx)
	}
}
