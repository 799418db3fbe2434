package forkstream

import "github.com/joeycumines/logiface"

const (
	// DefaultQueueCapacity is the ring queue capacity used when no
	// [WithQueueCapacity] option (and no explicit capacity via
	// [ForkWithLimits]) is supplied.
	DefaultQueueCapacity = 1024

	// DefaultMaxClones is the clone limit used when no [WithMaxClones]
	// option (and no explicit limit via [ForkWithLimits]) is supplied.
	DefaultMaxClones = 256
)

// forkOptions holds resolved configuration for a fork.
type forkOptions struct {
	queueCapacity int
	maxClones     int
	logger        *logiface.Logger[logiface.Event]
}

// ForkOption configures a fork at construction time, via [ForkStream] or
// [ForkWithLimits].
type ForkOption interface {
	applyFork(*forkOptions) error
}

// forkOptionImpl implements [ForkOption] from a plain function, mirroring
// the option-application shape used throughout this author's packages.
type forkOptionImpl struct {
	applyForkFunc func(*forkOptions) error
}

func (o *forkOptionImpl) applyFork(opts *forkOptions) error {
	return o.applyForkFunc(opts)
}

// WithQueueCapacity overrides the ring queue's bounded capacity. Values
// less than 1 are treated as 1, per spec: the queue always has room for
// at least the most recently produced item.
func WithQueueCapacity(capacity int) ForkOption {
	return &forkOptionImpl{func(opts *forkOptions) error {
		if capacity < 1 {
			capacity = 1
		}
		opts.queueCapacity = capacity
		return nil
	}}
}

// WithMaxClones overrides the hard cap on concurrently registered clone
// handles. Values less than 1 are treated as 1: a fork always has at
// least the handle that created it.
func WithMaxClones(max int) ForkOption {
	return &forkOptionImpl{func(opts *forkOptions) error {
		if max < 1 {
			max = 1
		}
		opts.maxClones = max
		return nil
	}}
}

// WithLogger attaches a structured logger used for debug/trace-level
// diagnostics (clone registration/unregistration, queue eviction, base
// termination). A nil logger (the default) disables logging entirely;
// logger methods on a nil *logiface.Logger are no-ops, so this field is
// never checked for nil before use.
func WithLogger(logger *logiface.Logger[logiface.Event]) ForkOption {
	return &forkOptionImpl{func(opts *forkOptions) error {
		opts.logger = logger
		return nil
	}}
}

// resolveForkOptions applies opts over the package defaults.
func resolveForkOptions(opts []ForkOption) (*forkOptions, error) {
	cfg := &forkOptions{
		queueCapacity: DefaultQueueCapacity,
		maxClones:     DefaultMaxClones,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyFork(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
