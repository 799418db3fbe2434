package forkstream

// Item is the Go realization of the Rust reference's Option<T>: a value
// together with a flag distinguishing "a real value" from "the stream has
// ended". Ok is false only for the terminal entry.
type Item[T any] struct {
	Value T
	Ok    bool
}

// Poll is the result of a single, non-blocking poll of a [Source] or a
// [Handle]. Ready is false iff the poll suspended; Item is only valid
// when Ready is true.
type Poll[T any] struct {
	Ready bool
	Item  Item[T]
}

// ReadyItem builds a Poll reporting a value or, when ok is false, the
// terminal marker.
func ReadyItem[T any](value T, ok bool) Poll[T] {
	return Poll[T]{Ready: true, Item: Item[T]{Value: value, Ok: ok}}
}

// PendingPoll is the Poll value reported when a Source or Handle suspends.
func PendingPoll[T any]() Poll[T] {
	return Poll[T]{}
}

// Waker is an opaque capability, supplied to a non-blocking poll, that
// schedules the caller for re-poll when invoked. Wake must be safe to
// call from any goroutine, including concurrently and more than once; a
// spurious or late call (e.g. after the handle that installed it has been
// closed) must be harmless.
type Waker interface {
	Wake()
}

// WakerFunc adapts a plain function to a [Waker].
type WakerFunc func()

// Wake implements [Waker].
func (f WakerFunc) Wake() {
	if f != nil {
		f()
	}
}

// Source is the abstract pull interface wrapped by [ForkStream]. It is the
// sole external collaborator of this package: the base stream, the
// concrete asynchronous runtime, and the waker's scheduling mechanism are
// all the caller's responsibility.
//
// Poll must never block. It returns a [Poll] reporting either readiness
// (with the next item, or the terminal marker) or pending, in which case
// w has been retained and will eventually be woken when the source makes
// progress. A Source is expected to be "fused": once Poll reports the
// terminal marker, every subsequent call must report the terminal marker
// again, without side effects.
type Source[T Cloneable[T]] interface {
	Poll(w Waker) Poll[T]

	// SizeHint returns a lower bound, and, if known, an upper bound on the
	// number of items remaining. upper is nil when the bound is unknown.
	SizeHint() (lower uint64, upper *uint64)
}
