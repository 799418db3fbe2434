// Package forkstream implements a cloneable asynchronous stream adapter.
//
// # Architecture
//
// [ForkStream] wraps a single [Source], the "base stream", and returns the
// first of any number of independently-consumed [Handle] values, "clone
// handles" - further handles come from [Handle.Clone]. Each handle observes
// its own copy of every value the base produces from the moment the handle
// was created (or, for the first handle, from the start). A handle created
// after the base has already produced values is a late joiner: it never
// sees values produced before its creation.
//
// The coordinator guarantees, for any number of handles polled
// concurrently from independent goroutines:
//
//   - at most one in-flight poll of the base stream at a time
//   - every handle eventually observes every value it is entitled to,
//     exactly once, in order
//   - bounded memory: a fixed-capacity ring queue buffers values for
//     handles that have not yet caught up, dropping the oldest buffered
//     value when full
//
// # Usage
//
//	h, err := forkstream.ForkStream[int](mySource)
//	if err != nil {
//	    // not returned by the built-in options: the clone limit is at least 1
//	}
//	defer h.Close()
//
//	clone, err := h.Clone()
//	if err != nil {
//	    // forkstream.MaxClonesExceededError
//	}
//	defer clone.Close()
//
//	for {
//	    v, ok, err := h.Next(ctx)
//	    if err != nil {
//	        break // ctx cancelled
//	    }
//	    if !ok {
//	        break // base stream ended
//	    }
//	    fmt.Println(v)
//	}
//
// # Poll surface
//
// [Handle.Next] is a convenience, context-aware blocking pull built on top
// of the lower-level [Handle.PollNext], which exposes the same poll/waker
// protocol a [Source] itself implements. Integrators bridging into another
// executor's own waker protocol should use [Handle.PollNext] directly;
// ordinary callers should use [Handle.Next].
//
// # Thread safety
//
// Every [Handle] sharing a base stream is safe for concurrent use from
// multiple goroutines. Mutating operations (polling, cloning, closing) are
// serialized through a single lock shared by every handle over the same
// base; there is no fine-grained locking underneath it.
package forkstream
