package forkstream

// cloneStateKind enumerates the phases of a single clone's progress through
// the base stream, tracked per clone id in a fork's registry.
type cloneStateKind int

const (
	// stateInitial is the state of a clone that has never been polled. Its
	// first poll establishes a baseline at the queue's current newest
	// index (if any): a freshly created clone never replays history that
	// was already buffered for its siblings.
	stateInitial cloneStateKind = iota
	// stateQueueEmpty: caught up, and the ring queue has never held an
	// entry relevant to this clone. Like stateAllSeen it repolls the base
	// directly, but a Pending result re-establishes its baseline at the
	// queue's current newest entry (see pollBaseFresh), where stateAllSeen
	// keeps its recorded index (see pollBaseContinuing).
	stateQueueEmpty
	// stateQueueEmptyPending is stateQueueEmpty, suspended directly on the
	// base stream with waker registered.
	stateQueueEmptyPending
	// stateUnseenReady means the clone was just handed the queue entry at
	// index; there may be further, newer entries still waiting.
	stateUnseenReady
	// stateAllSeen: caught up to the newest queue entry at index.
	stateAllSeen
	// stateAllSeenPending is stateAllSeen, suspended directly on the base
	// stream with waker registered.
	stateAllSeenPending
)

func (k cloneStateKind) String() string {
	switch k {
	case stateInitial:
		return "initial"
	case stateQueueEmpty:
		return "queue-empty"
	case stateQueueEmptyPending:
		return "queue-empty-pending"
	case stateUnseenReady:
		return "unseen-ready"
	case stateAllSeen:
		return "all-seen"
	case stateAllSeenPending:
		return "all-seen-pending"
	default:
		return "unknown"
	}
}

// Cloneable is the constraint satisfied by stream item types: a value able
// to produce an independent copy of itself. Every clone handle observes its
// own Clone() of each item, never a value shared with a sibling.
type Cloneable[T any] interface {
	Clone() T
}

// cloneState is the per-clone progress record held in a fork's registry.
// waker is non-nil only while kind is one of the two Pending variants;
// index is the ring index of the clone's baseline, or -1 if none has been
// established yet (only ever true for a clone whose queue was empty at
// every poll so far).
type cloneState[T Cloneable[T]] struct {
	kind  cloneStateKind
	waker Waker
	index int
}

func newCloneState[T Cloneable[T]]() *cloneState[T] {
	return &cloneState[T]{kind: stateInitial, index: -1}
}

// shouldStillSeeBaseItem reports whether cs still expects to observe the
// next base-stream production: it has either never been polled (Initial)
// or is currently suspended directly on the base stream (the two Pending
// kinds). It decides whether a value pulled straight from the base must be
// buffered for siblings, and whose wakers fire once it is.
func shouldStillSeeBaseItem[T Cloneable[T]](cs *cloneState[T]) bool {
	switch cs.kind {
	case stateInitial, stateQueueEmptyPending, stateAllSeenPending:
		return true
	default:
		return false
	}
}

// cloneStillNeedsIndex reports whether cs (belonging to some other clone
// than the one currently driving a transition) still needs to observe the
// live queue entry at ring index i. This decides whether a queue entry may
// be proactively removed once handed to another clone, and doubles as the
// residual-backlog count behind QueuedItems/SizeHint/IsTerminated.
//
// The comparison is strict in both branches: a QueueEmptyPending/
// AllSeenPending clone has not consumed anything past its recorded index,
// so it needs i only if i is strictly newer. An UnseenReady clone's index
// is the entry it was just handed - that entry itself is no longer owed to
// it, so it needs i only if i is strictly newer than that baseline too.
// Initial/QueueEmpty clones never need a pre-existing entry: the former by
// the late-joiner policy, the latter because it carries no queue baseline.
func cloneStillNeedsIndex[T Cloneable[T]](cs *cloneState[T], q *ringQueue[T], i int) bool {
	switch cs.kind {
	case stateQueueEmptyPending, stateAllSeenPending, stateUnseenReady:
		return cs.index < 0 || q.isNewerThan(i, cs.index)
	default: // stateInitial, stateQueueEmpty, stateAllSeen
		return false
	}
}

// cloneItem builds the Poll delivered for ring index i, cloning the stored
// value so the recipient owns an independent copy.
func cloneItem[T Cloneable[T]](q *ringQueue[T], i int) Poll[T] {
	item, ok := q.get(i)
	if !ok {
		return PendingPoll[T]()
	}
	if item.Ok {
		item.Value = item.Value.Clone()
	}
	return Poll[T]{Ready: true, Item: item}
}
