package domain

import "runtime"

// ProgressFunc is called while resolving a batch with the number of targets
// done so far and the batch size.
type ProgressFunc func(done, total int)

type options struct {
	progress ProgressFunc
	workers  int
}

// Option configures Resolve, Correct and ResolveAndCorrect.
type Option func(*options)

// WithProgress reports progress after each resolved target.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithWorkers bounds the number of transects corrected concurrently. Values
// below one are ignored.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

func newOptions(opts []Option) options {
	o := options{workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
