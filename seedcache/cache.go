package seedcache

import (
	"fmt"
	"math"
	"math/bits"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/coder/quartz"
	"github.com/gofrs/uuid"
	"github.com/tevino/abool"

	"github.com/safing/seedcache/log"
)

// Limits and fallback values.
const (
	MaxCapacity = 10_000_000

	FallbackRandom = 0.5
	FallbackPhase  = math.Pi

	twoPow64 = 1 << 64
)

// maxUnit is the largest float64 below 1.
var maxUnit = math.Nextafter(1, 0)

// Cache holds a fixed number of pre-generated seeds.
type Cache struct {
	ID uuid.UUID

	lock     sync.RWMutex
	seeds    []uint64
	capacity int
	source   Source

	// cursor is only used by Next.
	cursor atomic.Uint64

	refs    atomic.Int64
	retired *abool.AtomicBool

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Stats holds lookup statistics of a cache.
type Stats struct {
	Hits    uint64
	Misses  uint64
	HitRate float64
}

type options struct {
	source  Source
	clock   quartz.Clock
	seeded  bool
	genSeed uint64
}

// Option configures a new cache.
type Option func(*options)

// WithSource sets the source used by Populate. Defaults to a MixSource.
func WithSource(source Source) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithClock sets the clock of the default MixSource.
func WithClock(clock quartz.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithGeneratorSeed makes the initial fill reproducible.
func WithGeneratorSeed(seed uint64) Option {
	return func(o *options) {
		o.seeded = true
		o.genSeed = seed
	}
}

// New creates a new cache with the given capacity and fills every slot
// from a process-local pseudo-random generator.
func New(capacity int, opts ...Option) (*Cache, error) {
	if capacity < 1 || capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: capacity %d not in [1, %d]", ErrInvalidSize, capacity, MaxCapacity)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.source == nil {
		if o.clock == nil {
			o.clock = clock
		}
		o.source = NewMixSource(o.clock)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to create cache id: %w", err)
	}

	seeds, err := allocate(capacity)
	if err != nil {
		return nil, err
	}

	var gen *rand.Rand
	if o.seeded {
		gen = rand.New(rand.NewPCG(o.genSeed, o.genSeed^0x9e3779b97f4a7c15))
	} else {
		gen = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	for i := range seeds {
		seeds[i] = gen.Uint64()
	}

	c := &Cache{
		ID:       id,
		seeds:    seeds,
		capacity: capacity,
		source:   o.source,
		retired:  abool.New(),
	}
	c.refs.Store(1)

	log.Debugf("seedcache: created cache %s with capacity %d", c.ID, capacity)
	return c, nil
}

func allocate(capacity int) (seeds []uint64, err error) {
	defer func() {
		if r := recover(); r != nil {
			seeds = nil
			err = fmt.Errorf("%w: %v", ErrAllocationFailed, r)
		}
	}()

	return make([]uint64, capacity), nil
}

// Capacity returns the fixed number of slots.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Close retires the cache. The storage is released as soon as all holders
// obtained through Acquire have released the cache. Close is idempotent.
func (c *Cache) Close() {
	if c == nil || c.retired == nil {
		return
	}
	if c.retired.SetToIf(false, true) {
		c.release()
	}
}

// Release drops a reference obtained through Acquire.
func (c *Cache) Release() {
	c.release()
}

func (c *Cache) acquire() bool {
	for {
		n := c.refs.Load()
		if n <= 0 {
			return false
		}
		if c.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (c *Cache) release() {
	if c.refs.Add(-1) != 0 {
		return
	}

	c.lock.Lock()
	c.seeds = nil
	c.lock.Unlock()

	log.Debugf("seedcache: released cache %s", c.ID)
}

// Populate rewrites the first min(count, capacity) seeds with values from
// the cache's source. The whole pass holds the write lock.
func (c *Cache) Populate(key []byte, count int) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: empty key", ErrInvalidArgument)
	}
	if count < 1 || count > MaxCapacity {
		return fmt.Errorf("%w: count %d not in [1, %d]", ErrInvalidSize, count, MaxCapacity)
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if c.seeds == nil {
		return ErrClosed
	}

	n := min(count, c.capacity)
	if err := c.source.Fill(key, c.seeds[:n]); err != nil {
		return err
	}
	populates.Add(1)

	return nil
}

// Random returns the seed at index mapped into [0, 1). An out of range
// index or a released cache yields FallbackRandom.
func (c *Cache) Random(index int) float64 {
	lookups.Add(1)
	if c == nil {
		fallbacks.Add(1)
		return FallbackRandom
	}

	c.lock.RLock()
	if index < 0 || index >= len(c.seeds) {
		c.lock.RUnlock()
		c.misses.Add(1)
		fallbacks.Add(1)
		return FallbackRandom
	}
	seed := c.seeds[index]
	c.lock.RUnlock()

	c.hits.Add(1)
	return toUnit(seed)
}

func toUnit(seed uint64) float64 {
	v := float64(seed) / twoPow64
	if v >= 1 {
		return maxUnit
	}
	return v
}

// Index returns the slot used by Phase for the given identifiers.
// A cache without slots always yields 0.
func (c *Cache) Index(circuitID, packetHash uint64) int {
	if c == nil || c.capacity == 0 {
		return 0
	}
	combined := bits.RotateLeft64(circuitID^packetHash, 32)
	return int(combined % uint64(c.capacity))
}

// Phase derives a scalar in [0, 2π) from the two identifiers.
func (c *Cache) Phase(circuitID, packetHash uint64) float64 {
	if c == nil || c.capacity == 0 {
		return FallbackPhase
	}
	return c.Random(c.Index(circuitID, packetHash)) * 2 * math.Pi
}

// Next returns the value at the cursor and advances it, wrapping at the end.
func (c *Cache) Next() float64 {
	if c == nil || c.capacity == 0 {
		return c.Random(0)
	}
	pos := c.cursor.Add(1) - 1
	return c.Random(int(pos % uint64(c.capacity)))
}

// Amplitude returns two sequential values, each mapped into [-1, 1).
func (c *Cache) Amplitude() complex128 {
	re := c.Next()*2 - 1
	im := c.Next()*2 - 1
	return complex(re, im)
}

// Stats returns the lookup statistics.
func (c *Cache) Stats() Stats {
	s := Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}
