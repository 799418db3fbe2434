package forkstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueue_PushPopOldest(t *testing.T) {
	q := newRingQueue[cloneInt](3)
	assert.Equal(t, 0, q.Len())

	i0, ok := q.push(Item[cloneInt]{Value: 1, Ok: true})
	require.True(t, ok)
	i1, _ := q.push(Item[cloneInt]{Value: 2, Ok: true})
	i2, _ := q.push(Item[cloneInt]{Value: 3, Ok: true})
	assert.Equal(t, 3, q.Len())

	item, idx, ok := q.popOldest()
	require.True(t, ok)
	assert.Equal(t, i0, idx)
	assert.Equal(t, cloneInt(1), item.Value)
	assert.Equal(t, 2, q.Len())

	_ = i1
	_ = i2
}

func TestRingQueue_DropsOldestOnOverflow(t *testing.T) {
	q := newRingQueue[cloneInt](2)
	i0, _ := q.push(Item[cloneInt]{Value: 1, Ok: true})
	q.push(Item[cloneInt]{Value: 2, Ok: true})
	i2, ok := q.push(Item[cloneInt]{Value: 3, Ok: true})
	require.True(t, ok)

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, i0, i2, "the evicted oldest entry's slot is reused for the new entry")
	entries := q.iterate()
	require.Len(t, entries, 2)
	assert.Equal(t, cloneInt(2), entries[0].Item.Value, "oldest entry should have been evicted")
	v, ok := q.get(i2)
	require.True(t, ok)
	assert.Equal(t, cloneInt(3), v.Value)
}

func TestRingQueue_ZeroCapacityIsNoOp(t *testing.T) {
	q := newRingQueue[cloneInt](0)
	_, ok := q.push(Item[cloneInt]{Value: 1, Ok: true})
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestRingQueue_IsNewerThanSurvivesWrap(t *testing.T) {
	q := newRingQueue[cloneInt](2)
	a, _ := q.push(Item[cloneInt]{Value: 1, Ok: true})
	b, _ := q.push(Item[cloneInt]{Value: 2, Ok: true})
	assert.True(t, q.isNewerThan(b, a))
	assert.False(t, q.isNewerThan(a, b))

	// force a wrap: evict a, push a third entry into a's old slot
	c, _ := q.push(Item[cloneInt]{Value: 3, Ok: true})
	assert.True(t, q.isNewerThan(c, b))
}

func TestRingQueue_FindNextNewerIndex(t *testing.T) {
	q := newRingQueue[cloneInt](4)
	a, _ := q.push(Item[cloneInt]{Value: 1, Ok: true})
	b, _ := q.push(Item[cloneInt]{Value: 2, Ok: true})
	c, _ := q.push(Item[cloneInt]{Value: 3, Ok: true})

	got, ok := q.findNextNewerIndex(a)
	require.True(t, ok)
	assert.Equal(t, b, got)

	got, ok = q.findNextNewerIndex(b)
	require.True(t, ok)
	assert.Equal(t, c, got)

	_, ok = q.findNextNewerIndex(c)
	assert.False(t, ok)
}

func TestRingQueue_RemoveMiddle(t *testing.T) {
	q := newRingQueue[cloneInt](3)
	a, _ := q.push(Item[cloneInt]{Value: 1, Ok: true})
	b, _ := q.push(Item[cloneInt]{Value: 2, Ok: true})
	c, _ := q.push(Item[cloneInt]{Value: 3, Ok: true})

	assert.True(t, q.remove(b))
	assert.Equal(t, 2, q.Len())
	_, ok := q.get(b)
	assert.False(t, ok)

	entries := q.iterate()
	require.Len(t, entries, 2)
	assert.Equal(t, a, entries[0].Index)
	assert.Equal(t, c, entries[1].Index)
}

func TestRingQueue_IterateOrdersOldestToNewest(t *testing.T) {
	q := newRingQueue[cloneInt](3)
	q.push(Item[cloneInt]{Value: 1, Ok: true})
	q.push(Item[cloneInt]{Value: 2, Ok: true})
	q.push(Item[cloneInt]{Value: 3, Ok: true})

	entries := q.iterate()
	require.Len(t, entries, 3)
	assert.Equal(t, cloneInt(1), entries[0].Item.Value)
	assert.Equal(t, cloneInt(2), entries[1].Item.Value)
	assert.Equal(t, cloneInt(3), entries[2].Item.Value)
}
