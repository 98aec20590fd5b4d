package bytecode

import "math/bits"

// Bitset is a word-packed set of node indices; the dirty mask on
// partial programs.
type Bitset struct {
	words []uint64
	size  int
}

// NewBitset creates a set able to hold indices [0, size).
func NewBitset(size int) *Bitset {
	return &Bitset{words: make([]uint64, (size+63)/64), size: size}
}

// Set marks index i.
func (b *Bitset) Set(i int) {
	b.words[i>>6] |= 1 << (uint(i) & 63)
}

// Has reports whether index i is marked.
func (b *Bitset) Has(i int) bool {
	if i < 0 || i >= b.size {
		return false
	}
	return b.words[i>>6]&(1<<(uint(i)&63)) != 0
}

// Count returns the number of marked indices.
func (b *Bitset) Count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Len returns the capacity of the set.
func (b *Bitset) Len() int { return b.size }
