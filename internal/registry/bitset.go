package registry

// bitset is a growable bit set used to memoize which registered setups have
// been detected as overridden. Unlike a fixed-width mask it has no upper
// bound on the number of tracked entries.
type bitset struct {
	words []uint64
}

// Set marks bit i, growing the backing words as needed.
func (b *bitset) Set(i int) {
	word := i >> 6
	if word >= len(b.words) {
		grown := make([]uint64, word+1)
		copy(grown, b.words)
		b.words = grown
	}
	b.words[word] |= 1 << (uint(i) & 63)
}

// Get reports whether bit i is set. Bits beyond the backing words are unset.
func (b *bitset) Get(i int) bool {
	word := i >> 6
	if word >= len(b.words) {
		return false
	}
	return b.words[word]&(1<<(uint(i)&63)) != 0
}

// Reset clears all bits.
func (b *bitset) Reset() {
	b.words = nil
}
