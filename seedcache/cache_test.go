package seedcache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInvalidSize(t *testing.T) {
	t.Parallel()

	for _, capacity := range []int{0, -1, MaxCapacity + 1} {
		c, err := New(capacity)
		assert.Nil(t, c)
		assert.True(t, errors.Is(err, ErrInvalidSize), "capacity %d", capacity)
	}
}

func TestNewRandomRange(t *testing.T) {
	t.Parallel()

	for _, capacity := range []int{1, 2, 1000} {
		c, err := New(capacity)
		require.NoError(t, err)
		assert.Equal(t, capacity, c.Capacity())

		for i := 0; i < capacity; i++ {
			v := c.Random(i)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.Less(t, v, 1.0)
		}
	}
}

func TestGeneratorSeed(t *testing.T) {
	t.Parallel()

	a, err := New(16, WithGeneratorSeed(7))
	require.NoError(t, err)
	b, err := New(16, WithGeneratorSeed(7))
	require.NoError(t, err)

	for i := 0; i < 16; i++ {
		assert.Equal(t, a.Random(i), b.Random(i))
	}
}

func TestToUnit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, toUnit(0))
	assert.Equal(t, 0.5, toUnit(1<<63))
	assert.Less(t, toUnit(math.MaxUint64), 1.0)
}

func TestFoldKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(0x616263), foldKey([]byte("abc")))
	// Only the last eight bytes survive.
	assert.Equal(t, foldKey([]byte("23456789")), foldKey([]byte("123456789")))
}

func TestMixSource(t *testing.T) {
	t.Parallel()

	mock := quartz.NewMock(t)
	c, err := New(8, WithClock(mock))
	require.NoError(t, err)

	chain := func(e uint64) uint64 {
		e = e*1103515245 + 12345
		e ^= e >> 32
		return e*1664525 + 1013904223
	}

	// No time elapsed since the source was created.
	require.NoError(t, c.Populate([]byte("abc"), 8))
	for i := 0; i < 8; i++ {
		assert.Equal(t, toUnit(chain(uint64(i)^0x616263)), c.Random(i), "slot %d", i)
	}

	// 1.5s elapsed: sec=1, nsec=500000000.
	mock.Advance(1500 * time.Millisecond)
	require.NoError(t, c.Populate([]byte("abc"), 3))
	for i := 0; i < 3; i++ {
		want := chain(500_000_000 ^ 1 ^ uint64(i) ^ 0x616263)
		assert.Equal(t, toUnit(want), c.Random(i), "slot %d", i)
	}
	// Slots beyond count are untouched.
	for i := 3; i < 8; i++ {
		assert.Equal(t, toUnit(chain(uint64(i)^0x616263)), c.Random(i), "slot %d", i)
	}
}

func TestPopulateLimits(t *testing.T) {
	t.Parallel()

	c, err := New(4, WithGeneratorSeed(1))
	require.NoError(t, err)
	before := c.Random(0)

	err = c.Populate(nil, 4)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	err = c.Populate([]byte("k"), 0)
	assert.True(t, errors.Is(err, ErrInvalidSize))
	err = c.Populate([]byte("k"), MaxCapacity+1)
	assert.True(t, errors.Is(err, ErrInvalidSize))
	assert.Equal(t, before, c.Random(0))

	// Count larger than capacity only rewrites the available slots.
	require.NoError(t, c.Populate([]byte("k"), 100))
	assert.Equal(t, 4, c.Capacity())
}

func TestReaderSource(t *testing.T) {
	t.Parallel()

	raw := make([]byte, 16)
	binary.LittleEndian.PutUint64(raw, 11)
	binary.LittleEndian.PutUint64(raw[8:], 22)

	dst := make([]uint64, 2)
	src := NewReaderSource(bytes.NewReader(raw))
	require.NoError(t, src.Fill([]byte{0x01}, dst))
	assert.Equal(t, mix(11^0^1), dst[0])
	assert.Equal(t, mix(22^1^1), dst[1])

	// Short reads leave the destination untouched.
	dst = []uint64{5, 6, 7}
	src = NewReaderSource(bytes.NewReader(raw))
	assert.Error(t, src.Fill([]byte{0x01}, dst))
	assert.Equal(t, []uint64{5, 6, 7}, dst)

	c, err := New(3, WithSource(NewReaderSource(bytes.NewReader(raw))))
	require.NoError(t, err)
	before := c.Random(0)
	assert.Error(t, c.Populate([]byte("k"), 3))
	assert.Equal(t, before, c.Random(0))
}

func TestPhase(t *testing.T) {
	t.Parallel()

	c, err := New(7, WithGeneratorSeed(42))
	require.NoError(t, err)

	// 1<<32 mod 7 == 4, an unrotated index would be 1.
	assert.Equal(t, 4, c.Index(1, 0))

	pairs := [][2]uint64{
		{0, 0},
		{1, 0},
		{0xdeadbeef, 0xcafebabe},
		{math.MaxUint64, 12345},
		{1 << 40, 1 << 3},
	}
	for _, pair := range pairs {
		a, b := pair[0], pair[1]
		combined := a ^ b
		rotated := combined<<32 | combined>>32
		want := c.Random(int(rotated%7)) * 2 * math.Pi

		got := c.Phase(a, b)
		assert.Equal(t, want, got)
		assert.Equal(t, got, c.Phase(a, b))
		assert.Equal(t, got, c.Phase(b, a))
		assert.GreaterOrEqual(t, got, 0.0)
		assert.Less(t, got, 2*math.Pi)
	}
}

func TestFallbacks(t *testing.T) {
	t.Parallel()

	var nilCache *Cache
	assert.Equal(t, FallbackRandom, nilCache.Random(0))
	assert.Equal(t, math.Pi, nilCache.Phase(1, 2))

	c, err := New(3)
	require.NoError(t, err)
	assert.Equal(t, 0.5, c.Random(3))
	assert.Equal(t, 0.5, c.Random(-1))

	c.Close()
	c.Close()
	assert.Equal(t, 0.5, c.Random(0))
	assert.Equal(t, math.Pi, c.Phase(1, 2))
	assert.True(t, errors.Is(c.Populate([]byte("k"), 1), ErrClosed))
}

func TestNextAndStats(t *testing.T) {
	t.Parallel()

	c, err := New(3, WithGeneratorSeed(3))
	require.NoError(t, err)
	assert.Equal(t, Stats{}, c.Stats())

	for i := 0; i < 6; i++ {
		assert.Equal(t, c.Random(i%3), c.Next())
	}

	amp := c.Amplitude()
	assert.Equal(t, c.Random(0)*2-1, real(amp))
	assert.Equal(t, c.Random(1)*2-1, imag(amp))
	assert.GreaterOrEqual(t, real(amp), -1.0)
	assert.Less(t, imag(amp), 1.0)

	c.Random(99)
	stats := c.Stats()
	assert.Equal(t, uint64(16), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 16.0/17.0, stats.HitRate, 1e-12)
}

func TestZeroValueCache(t *testing.T) {
	t.Parallel()

	var c Cache
	assert.Equal(t, 0, c.Index(1, 2))
	assert.Equal(t, math.Pi, c.Phase(1, 2))
	assert.Equal(t, FallbackRandom, c.Random(0))
	assert.Equal(t, FallbackRandom, c.Next())
	assert.NotPanics(t, c.Close)
	assert.NotPanics(t, c.Release)
	assert.Equal(t, Stats{Misses: 2}, c.Stats())
}
