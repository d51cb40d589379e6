package workload

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
)

// VirtualUser is the identity of one execution context together with its private random source.
// A VirtualUser must only be used by the goroutine that owns it.
type VirtualUser struct {
	Index int
	rand  *rand.Rand
}

// NewVirtualUser returns a user whose random source is seeded from crypto/rand, so that users
// started at the same instant still draw different sequences.
func NewVirtualUser(index int) *VirtualUser {
	return NewVirtualUserWithSeed(index, cryptoSeed())
}

func NewVirtualUserWithSeed(index int, seed int64) *VirtualUser {
	return &VirtualUser{
		Index: index,
		rand:  rand.New(rand.NewSource(seed)),
	}
}

func (u *VirtualUser) Rand() *rand.Rand {
	return u.rand
}

func cryptoSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		panic(err)
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}
