package table

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/ember/pkg/value"
)

func key(s string) *value.StringObject { return value.NewStringObject(s) }

func TestSetGetRoundTrip(t *testing.T) {
	tbl := New()
	k := key("x")

	isNew := tbl.Set(k, value.Number(1))
	assert.True(t, isNew)

	got, ok := tbl.Get(k)
	require.True(t, ok)
	assert.Equal(t, value.Number(1), got)

	isNew = tbl.Set(k, value.Number(2))
	assert.False(t, isNew, "overwriting an existing key is not new")

	got, ok = tbl.Get(k)
	require.True(t, ok)
	assert.Equal(t, value.Number(2), got)
}

func TestGetMissing(t *testing.T) {
	tbl := New()
	_, ok := tbl.Get(key("nope"))
	assert.False(t, ok)
}

func TestDeleteThenGet(t *testing.T) {
	tbl := New()
	k := key("x")
	tbl.Set(k, value.Bool(true))

	assert.True(t, tbl.Delete(k))
	_, ok := tbl.Get(k)
	assert.False(t, ok, "deleted key must not be found")

	assert.False(t, tbl.Delete(k), "deleting twice reports absent the second time")
}

func TestTombstoneSlotReused(t *testing.T) {
	tbl := New()
	a, b := key("a"), key("b")
	tbl.Set(a, value.Number(1))
	tbl.Delete(a)
	// b may or may not land in a's old slot, but either way it must be
	// findable afterwards: tombstones must not break the probe chain.
	tbl.Set(b, value.Number(2))
	got, ok := tbl.Get(b)
	require.True(t, ok)
	assert.Equal(t, value.Number(2), got)

	// Re-inserting a: one of the two inserts after the delete recycles a's
	// tombstone, so count (occupied + tombstone slots) stays at 2, not 3.
	tbl.Set(a, value.Number(3))
	assert.Equal(t, 2, tbl.count)
	got, ok = tbl.Get(a)
	require.True(t, ok)
	assert.Equal(t, value.Number(3), got)
}

func TestAddAllCopiesOccupiedEntries(t *testing.T) {
	src, dst := New(), New()
	a, b := key("a"), key("b")
	src.Set(a, value.Number(1))
	src.Set(b, value.Number(2))

	src.AddAll(dst)

	got, ok := dst.Get(a)
	require.True(t, ok)
	assert.Equal(t, value.Number(1), got)
	got, ok = dst.Get(b)
	require.True(t, ok)
	assert.Equal(t, value.Number(2), got)

	_, ok = dst.Get(key("a"))
	assert.False(t, ok, "dst lookups use distinct handles, not content, by design of this table")
}

func TestFindStringContentLookup(t *testing.T) {
	tbl := New()
	k := key("hello")
	tbl.Set(k, value.Nil)

	found := tbl.FindString("hello", value.HashString("hello"))
	require.NotNil(t, found)
	assert.Same(t, k, found)

	assert.Nil(t, tbl.FindString("goodbye", value.HashString("goodbye")))
}

func TestGrowthPreservesAllLiveKeys(t *testing.T) {
	tbl := New()
	keys := make([]*value.StringObject, 0, 64)
	for i := 0; i < 64; i++ {
		k := key(fmt.Sprintf("key-%d", i))
		keys = append(keys, k)
		tbl.Set(k, value.Number(float64(i)))
	}
	for i, k := range keys {
		got, ok := tbl.Get(k)
		require.True(t, ok)
		assert.Equal(t, value.Number(float64(i)), got)
	}
}

func TestLoadFactorNeverExceedsThreeQuarters(t *testing.T) {
	tbl := New()
	for i := 0; i < 100; i++ {
		tbl.Set(key(fmt.Sprintf("k%d", i)), value.Nil)
		assert.LessOrEqual(t, float64(tbl.count), float64(len(tbl.entries))*0.75+1e-9)
	}
}
