package seedcache

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/safing/seedcache/log"
)

const version = "0.1.0"

var (
	instance     *Cache
	instanceLock sync.RWMutex

	lookups   atomic.Uint64
	fallbacks atomic.Uint64
	populates atomic.Uint64
)

// Version returns the version of the seed cache.
func Version() string {
	return version
}

// Create creates the process-wide cache. It fails with ErrAlreadyExists if
// one is already present, leaving the existing cache untouched.
func Create(capacity int, opts ...Option) error {
	instanceLock.Lock()
	defer instanceLock.Unlock()

	if instance != nil {
		return ErrAlreadyExists
	}

	c, err := New(capacity, opts...)
	if err != nil {
		return err
	}
	instance = c

	return nil
}

// Destroy detaches and retires the process-wide cache. Its storage is
// released once all holders released it. Destroy is a no-op when no cache
// is present.
func Destroy() {
	instanceLock.Lock()
	c := instance
	instance = nil
	instanceLock.Unlock()

	if c != nil {
		c.Close()
	}
}

// Acquire returns the process-wide cache with an added reference, or nil if
// no cache is present. Callers must call Release when done.
func Acquire() *Cache {
	instanceLock.RLock()
	defer instanceLock.RUnlock()

	if instance == nil || !instance.acquire() {
		return nil
	}
	return instance
}

// Populate populates the process-wide cache, creating it with a capacity of
// count if absent.
func Populate(key []byte, count int) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: empty key", ErrInvalidArgument)
	}
	if count < 1 || count > MaxCapacity {
		return fmt.Errorf("%w: count %d not in [1, %d]", ErrInvalidSize, count, MaxCapacity)
	}

	c, err := acquireOrCreate(count)
	if err != nil {
		return err
	}
	defer c.Release()

	return c.Populate(key, count)
}

func acquireOrCreate(capacity int) (*Cache, error) {
	instanceLock.Lock()
	defer instanceLock.Unlock()

	if instance == nil {
		c, err := New(capacity)
		if err != nil {
			return nil, err
		}
		instance = c
		log.Infof("seedcache: created cache %s on first populate", c.ID)
	}

	if !instance.acquire() {
		return nil, ErrClosed
	}
	return instance, nil
}

// GetRandom returns the value of the process-wide cache at index in [0, 1),
// or FallbackRandom if no cache is present or the index is out of range.
func GetRandom(index int) float64 {
	c := Acquire()
	if c == nil {
		lookups.Add(1)
		fallbacks.Add(1)
		return FallbackRandom
	}
	defer c.Release()

	return c.Random(index)
}

// ComputePhase derives a phase in [0, 2π) for the given identifiers from the
// process-wide cache, or returns FallbackPhase if no cache is present.
func ComputePhase(circuitID, packetHash uint64) float64 {
	c := Acquire()
	if c == nil {
		lookups.Add(1)
		fallbacks.Add(1)
		return FallbackPhase
	}
	defer c.Release()

	return c.Phase(circuitID, packetHash)
}
