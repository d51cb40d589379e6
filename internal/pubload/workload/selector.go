package workload

import (
	"fmt"

	"github.com/armadaproject/pubload/internal/pubload/idpool"
)

// FreshPrefix starts every identifier that is not taken from the pool.
const FreshPrefix = "u"

// Selector picks the event identifier for each event of a batch.
type Selector struct {
	pool               *idpool.Pool
	poolHitProbability float64
}

func NewSelector(pool *idpool.Pool, poolHitProbability float64) *Selector {
	return &Selector{
		pool:               pool,
		poolHitProbability: poolHitProbability,
	}
}

// Select returns a pool identifier with the configured probability and a fresh one otherwise.
// The boolean is true when the identifier came from the pool.
//
// Fresh identifiers combine the user index, the user's iteration number and 64 random bits, so
// they are unique across the run without any state shared between users.
func (s *Selector) Select(vu *VirtualUser, iteration uint64) (string, bool) {
	r := vu.Rand()
	if r.Float64() < s.poolHitProbability {
		return s.pool.Sample(r), true
	}
	return FreshIdentifier(vu.Index, iteration, r.Uint64()), false
}

// FreshIdentifier formats a fresh identifier as u-<vu>-<iteration>-<suffix as 16 hex digits>.
func FreshIdentifier(vu int, iteration uint64, suffix uint64) string {
	return fmt.Sprintf("%s-%d-%d-%016x", FreshPrefix, vu, iteration, suffix)
}
