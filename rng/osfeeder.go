package rng

import (
	"context"
	"crypto/rand"
	"fmt"
)

func osFeeder(ctx context.Context) error {
	feeder := NewFeeder()
	defer feeder.CloseFeeder()

	for {
		// get feed entropy
		minEntropyBytes := int(minFeedEntropy())/8 + 1
		if minEntropyBytes < 32 {
			minEntropyBytes = 64
		}

		// get entropy
		osEntropy := make([]byte, minEntropyBytes)
		n, err := rand.Read(osEntropy)
		if err != nil {
			return fmt.Errorf("could not read entropy from os: %w", err)
		}
		if n != minEntropyBytes {
			return fmt.Errorf("could not read enough entropy from os: got only %d bytes instead of %d", n, minEntropyBytes)
		}

		// feed
		feeder.SupplyEntropy(osEntropy, minEntropyBytes*8)

		if ctx.Err() != nil {
			return nil
		}
	}
}
