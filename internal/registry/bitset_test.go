package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitset_SetAndGet(t *testing.T) {
	var b bitset

	assert.False(t, b.Get(0))
	assert.False(t, b.Get(1000))

	b.Set(0)
	b.Set(63)
	b.Set(64)
	b.Set(1000)

	assert.True(t, b.Get(0))
	assert.True(t, b.Get(63))
	assert.True(t, b.Get(64))
	assert.True(t, b.Get(1000))
	assert.False(t, b.Get(1))
	assert.False(t, b.Get(999))
}

func TestBitset_GrowthPreservesBits(t *testing.T) {
	var b bitset

	b.Set(3)
	b.Set(500) // forces growth
	assert.True(t, b.Get(3))
	assert.True(t, b.Get(500))
}

func TestBitset_Reset(t *testing.T) {
	var b bitset

	b.Set(5)
	b.Set(200)
	b.Reset()

	assert.False(t, b.Get(5))
	assert.False(t, b.Get(200))
}
