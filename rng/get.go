package rng

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"time"
)

var (
	// Reader provides a global instance to read from the RNG.
	Reader io.Reader = reader{}

	// ErrNotReady is returned when the RNG has not been started yet.
	ErrNotReady = errors.New("RNG is not ready yet")

	rngBytesRead int64
	rngLastFeed  time.Time
)

// reader provides an io.Reader interface.
type reader struct{}

func checkEntropy() (err error) {
	if !rngReady.IsSet() {
		return ErrNotReady
	}

	if rngBytesRead > reseedAfterBytes() ||
		int64(clock.Since(rngLastFeed).Seconds()) > reseedAfterSeconds() {
		timeout := clock.NewTimer(1*time.Second, "rng", "reseed")
		defer timeout.Stop()

		select {
		case r := <-rngFeeder:
			rng.Reseed(r)
			rngBytesRead = 0
			rngLastFeed = clock.Now()
		case <-timeout.C:
			return errors.New("failed to get new entropy")
		}
	}

	return nil
}

// Read reads random bytes into the supplied byte slice.
func Read(b []byte) (n int, err error) {
	rngLock.Lock()
	defer rngLock.Unlock()

	if err := checkEntropy(); err != nil {
		return 0, err
	}

	rngBytesRead += int64(len(b))
	return copy(b, rng.PseudoRandomData(uint(len(b)))), nil
}

// Read implements the io.Reader interface.
func (r reader) Read(b []byte) (n int, err error) {
	return Read(b)
}

// Bytes allocates a new byte slice of given length and fills it with random data.
func Bytes(n int) ([]byte, error) {
	rngLock.Lock()
	defer rngLock.Unlock()

	if err := checkEntropy(); err != nil {
		return nil, err
	}

	rngBytesRead += int64(n)
	return rng.PseudoRandomData(uint(n)), nil
}

// Uint64 returns a random 64 bit number.
func Uint64() (uint64, error) {
	randomBytes, err := Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(randomBytes), nil
}

// Number returns a random number from 0 to (incl.) max.
func Number(max uint64) (uint64, error) {
	if max == math.MaxUint64 {
		return Uint64()
	}
	max++
	secureLimit := math.MaxUint64 - (math.MaxUint64 % max)

	for {
		candidate, err := Uint64()
		if err != nil {
			return 0, err
		}

		if candidate < secureLimit {
			return candidate % max, nil
		}
	}
}
