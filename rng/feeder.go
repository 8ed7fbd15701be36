package rng

import (
	"bytes"
	"context"
	"encoding/binary"

	"github.com/tevino/abool"
)

var rngFeeder = make(chan []byte)

// The Feeder is used to feed entropy to the RNG.
type Feeder struct {
	input        chan *entropyData
	entropy      int64
	needsEntropy *abool.AtomicBool
	buffer       *bytes.Buffer
}

type entropyData struct {
	data    []byte
	entropy int
}

// NewFeeder returns a new entropy Feeder.
func NewFeeder() *Feeder {
	newFeeder := &Feeder{
		input:        make(chan *entropyData),
		needsEntropy: abool.NewBool(true),
		buffer:       new(bytes.Buffer),
	}
	module.StartWorker("feeder", newFeeder.run)
	return newFeeder
}

// NeedsEntropy returns whether the feeder is currently gathering entropy.
func (f *Feeder) NeedsEntropy() bool {
	return f.needsEntropy.IsSet()
}

// SupplyEntropy supplies entropy to the Feeder, it will block until the Feeder has read from it.
func (f *Feeder) SupplyEntropy(data []byte, entropy int) {
	select {
	case f.input <- &entropyData{
		data:    data,
		entropy: entropy,
	}:
	case <-module.Stopping():
	}
}

// SupplyEntropyIfNeeded supplies entropy to the Feeder, but will not block if no entropy is currently needed.
func (f *Feeder) SupplyEntropyIfNeeded(data []byte, entropy int) {
	if !f.needsEntropy.IsSet() {
		return
	}

	select {
	case f.input <- &entropyData{
		data:    data,
		entropy: entropy,
	}:
	default:
	}
}

// SupplyEntropyAsInt supplies entropy to the Feeder, it will block until the Feeder has read from it.
func (f *Feeder) SupplyEntropyAsInt(n int64, entropy int) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(n))
	f.SupplyEntropy(b, entropy)
}

// CloseFeeder stops the feed processing.
func (f *Feeder) CloseFeeder() {
	select {
	case f.input <- nil:
	case <-module.Stopping():
	}
}

func (f *Feeder) run(ctx context.Context) error {
	defer f.needsEntropy.UnSet()

	for {
		// gather
		f.needsEntropy.Set()
	gather:
		for {
			select {
			case newEntropy := <-f.input:
				if newEntropy == nil {
					return nil
				}
				f.buffer.Write(newEntropy.data)
				f.entropy += int64(newEntropy.entropy)
				if f.entropy >= minFeedEntropy() {
					break gather
				}
			case <-ctx.Done():
				return nil
			}
		}

		// feed
		f.needsEntropy.UnSet()
		data := make([]byte, f.buffer.Len())
		copy(data, f.buffer.Bytes())
		select {
		case rngFeeder <- data:
		case <-ctx.Done():
			return nil
		}
		f.buffer.Reset()
		f.entropy = 0
	}
}
