// Package idpool holds the hot set: a fixed catalogue of event identifiers that the workload
// reuses to exercise duplicate handling on the receiving side.
//
// A Pool is built once before any virtual user starts and is never modified afterwards, so it can
// be shared by any number of goroutines without locking.
package idpool

import (
	"math/rand"
	"strconv"

	"github.com/pkg/errors"

	"github.com/armadaproject/pubload/internal/common/publoaderrors"
)

// Prefix of every pool identifier. Identifiers are Prefix followed by their index.
const Prefix = "e-"

type Pool struct {
	ids []string
}

// New returns a pool holding the identifiers e-0 .. e-(size-1), in that order.
func New(size int) (*Pool, error) {
	if size <= 0 {
		return nil, errors.WithStack(&publoaderrors.ErrInvalidArgument{
			Name:    "poolSize",
			Value:   size,
			Message: "pool size must be positive",
		})
	}
	ids := make([]string, size)
	for i := range ids {
		ids[i] = Prefix + strconv.Itoa(i)
	}
	return &Pool{ids: ids}, nil
}

// Sample returns an identifier chosen uniformly at random using r.
// r belongs to the caller; Sample itself keeps no state.
func (p *Pool) Sample(r *rand.Rand) string {
	return p.ids[r.Intn(len(p.ids))]
}

func (p *Pool) Len() int {
	return len(p.ids)
}

// At returns the identifier at index i. It panics if i is out of range.
func (p *Pool) At(i int) string {
	return p.ids[i]
}

// Contains reports whether id is one of the pool identifiers.
func (p *Pool) Contains(id string) bool {
	if len(id) <= len(Prefix) || id[:len(Prefix)] != Prefix {
		return false
	}
	digits := id[len(Prefix):]
	if len(digits) > 1 && digits[0] == '0' {
		return false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return false
		}
	}
	i, err := strconv.Atoi(digits)
	return err == nil && i < len(p.ids)
}
