package workload

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/pubload/internal/pubload/idpool"
)

func testPool(t *testing.T, size int) *idpool.Pool {
	t.Helper()
	pool, err := idpool.New(size)
	require.NoError(t, err)
	return pool
}

func TestSelector_PoolHitFractionConverges(t *testing.T) {
	pool := testPool(t, 14000)
	for _, p := range []float64{0.30, 0.05, 0.75} {
		selector := NewSelector(pool, p)
		vu := NewVirtualUserWithSeed(1, 7)

		const samples = 10000
		hits := 0
		for i := 0; i < samples; i++ {
			id, fromPool := selector.Select(vu, uint64(i))
			assert.Equal(t, fromPool, pool.Contains(id), id)
			if fromPool {
				hits++
			}
		}
		assert.InDelta(t, p, float64(hits)/samples, 0.02, "probability %v", p)
	}
}

func TestSelector_Extremes(t *testing.T) {
	pool := testPool(t, 10)
	vu := NewVirtualUserWithSeed(3, 1)

	never := NewSelector(pool, 0)
	always := NewSelector(pool, 1)
	for i := 0; i < 1000; i++ {
		id, fromPool := never.Select(vu, uint64(i))
		assert.False(t, fromPool)
		assert.True(t, strings.HasPrefix(id, "u-3-"), id)

		id, fromPool = always.Select(vu, uint64(i))
		assert.True(t, fromPool)
		assert.True(t, pool.Contains(id), id)
	}
}

func TestFreshIdentifier_Format(t *testing.T) {
	assert.Equal(t, "u-12-345-00000000deadbeef", FreshIdentifier(12, 345, 0xdeadbeef))
	assert.Equal(t, "u-1-0-ffffffffffffffff", FreshIdentifier(1, 0, ^uint64(0)))
}

func TestSelector_FreshIdentifiersUniqueAcrossVirtualUsers(t *testing.T) {
	selector := NewSelector(testPool(t, 1), 0)

	const (
		virtualUsers = 50
		iterations   = 200
		batchSize    = 50
	)
	perUser := make([][]string, virtualUsers)
	var wg sync.WaitGroup
	for u := 0; u < virtualUsers; u++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			vu := NewVirtualUser(index + 1)
			ids := make([]string, 0, iterations*batchSize)
			for iter := uint64(0); iter < iterations; iter++ {
				for e := 0; e < batchSize; e++ {
					id, _ := selector.Select(vu, iter)
					ids = append(ids, id)
				}
			}
			perUser[index] = ids
		}(u)
	}
	wg.Wait()

	seen := make(map[string]struct{}, virtualUsers*iterations*batchSize)
	for _, ids := range perUser {
		for _, id := range ids {
			_, dup := seen[id]
			require.False(t, dup, "fresh identifier %s generated twice", id)
			seen[id] = struct{}{}
		}
	}
	assert.Len(t, seen, virtualUsers*iterations*batchSize)
}
