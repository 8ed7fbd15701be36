package seedcache

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/coder/quartz"
)

// Source generates the seeds written by a populate call.
// Fill must either fill all of dst or leave it untouched and return an error.
type Source interface {
	Fill(key []byte, dst []uint64) error
}

// foldKey folds the key into a single 64 bit value by shifting in one byte
// at a time. Earlier bytes are shifted out after eight bytes.
func foldKey(key []byte) uint64 {
	var k uint64
	for _, b := range key {
		k = k<<8 | uint64(b)
	}
	return k
}

// mix runs the fixed LCG chain over the given entropy.
func mix(e uint64) uint64 {
	e = e*1103515245 + 12345
	e ^= e >> 32
	e = e*1664525 + 1013904223
	return e
}

// MixSource mixes the key with a monotonic clock reading per slot.
type MixSource struct {
	clock quartz.Clock
	start time.Time
}

// NewMixSource returns a MixSource reading the given clock. The monotonic
// reading is the time elapsed since the source was created.
func NewMixSource(clock quartz.Clock) *MixSource {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &MixSource{
		clock: clock,
		start: clock.Now(),
	}
}

// Fill implements Source.
func (s *MixSource) Fill(key []byte, dst []uint64) error {
	k := foldKey(key)
	for i := range dst {
		elapsed := s.clock.Since(s.start, "seedcache", "mix")
		sec := uint64(elapsed / time.Second)
		nsec := uint64(elapsed % time.Second)

		dst[i] = mix(nsec ^ sec ^ uint64(i) ^ k)
	}
	return nil
}

// ReaderSource takes the per slot entropy from an external reader, such as
// the fortuna generator in the rng package, in place of the clock.
type ReaderSource struct {
	r io.Reader
}

// NewReaderSource returns a ReaderSource reading from r.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r}
}

// Fill implements Source.
func (s *ReaderSource) Fill(key []byte, dst []uint64) error {
	buf := make([]byte, len(dst)*8)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return fmt.Errorf("failed to read entropy: %w", err)
	}

	k := foldKey(key)
	for i := range dst {
		dst[i] = mix(binary.LittleEndian.Uint64(buf[i*8:]) ^ uint64(i) ^ k)
	}
	return nil
}
