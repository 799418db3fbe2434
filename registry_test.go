package forkstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterReusesFreedIDs(t *testing.T) {
	r := newRegistry[cloneInt](1)

	id1, err := r.register()
	require.NoError(t, err)
	require.True(t, r.unregister(id1))

	id2, err := r.register()
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, r.count())
}

func TestRegistry_RegisterRespectsMax(t *testing.T) {
	r := newRegistry[cloneInt](1)
	_, err := r.register()
	require.NoError(t, err)

	_, err = r.register()
	require.Error(t, err)
	var maxErr *MaxClonesExceededError
	assert.ErrorAs(t, err, &maxErr)
}

func TestRegistry_TakeRestoreRoundTrip(t *testing.T) {
	r := newRegistry[cloneInt](4)
	id, err := r.register()
	require.NoError(t, err)

	cs, err := r.take(id)
	require.NoError(t, err)
	assert.True(t, r.exists(id))

	_, err = r.take(id)
	assert.Error(t, err, "taking an already-taken id should fail")

	require.NoError(t, r.restore(id, cs))
	_, ok := r.peek(id)
	assert.True(t, ok)
}

func TestRegistry_RestoreRejectsUnknownOrActive(t *testing.T) {
	r := newRegistry[cloneInt](4)
	id, err := r.register()
	require.NoError(t, err)

	err = r.restore(id, newCloneState[cloneInt]())
	var activeErr *CloneAlreadyActiveError
	assert.ErrorAs(t, err, &activeErr)

	err = r.restore(99, newCloneState[cloneInt]())
	var invalidErr *InvalidCloneIDError
	assert.ErrorAs(t, err, &invalidErr)
}

func TestRegistry_CollectWakersNeedingBaseItem(t *testing.T) {
	r := newRegistry[cloneInt](4)
	idA, _ := r.register()
	idB, _ := r.register()
	idC, _ := r.register()

	wA := &countingWaker{}
	wB := &countingWaker{}

	csA, _ := r.take(idA)
	csA.kind = stateAllSeenPending
	csA.waker = wA
	require.NoError(t, r.restore(idA, csA))

	csB, _ := r.take(idB)
	csB.kind = stateQueueEmptyPending
	csB.waker = wB
	require.NoError(t, r.restore(idB, csB))

	// idC stays Initial: not waiting on the base stream.

	wakers := r.collectWakersNeedingBaseItem(idA)
	assert.Len(t, wakers, 1, "should exclude idA itself, include only idB's waker")
	assert.True(t, r.hasOtherClonesWaiting(idA))
	assert.True(t, r.hasOtherClonesWaiting(idC))
}
