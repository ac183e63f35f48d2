package compilecache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndGetRoundTrip(t *testing.T) {
	c := New()
	ok := c.Insert("k1", []byte("v1"))
	require.True(t, ok)

	v, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), v)
}

func TestInsertAlwaysReportsTrue(t *testing.T) {
	c := New()
	huge := make([]byte, MaxWeight*2)
	assert.True(t, c.Insert("huge", huge), "insert must always report true per spec, even when the entry alone exceeds the bound")
}

func TestAggregateWeightStaysWithinBound(t *testing.T) {
	c := New()
	value := make([]byte, 1024)
	for i := 0; i < 40000; i++ {
		c.Insert(fmt.Sprintf("key-%d", i), value)
	}
	assert.LessOrEqual(t, c.Weight(), uint64(MaxWeight))
}

func TestEvictionPrefersLeastHitEntryAmongOldest(t *testing.T) {
	c := New()
	small := make([]byte, 1)

	// Fill most of the budget with two entries, one frequently read.
	big := make([]byte, MaxWeight/2-10)
	c.Insert("cold", big)
	c.Insert("hot", big)
	for i := 0; i < 5; i++ {
		c.Get("hot")
	}

	// Push past the bound; eviction should prefer "cold" over "hot".
	c.Insert("filler", big)
	for i := 0; i < 10; i++ {
		c.Insert(fmt.Sprintf("pad-%d", i), small)
	}

	_, hotStillPresent := c.Get("hot")
	assert.True(t, hotStillPresent, "a frequently-read entry should survive eviction longer than a cold one")
}
