package rng

import (
	"context"
	"time"
)

func getFullFeedDuration() time.Duration {
	// full feed every 5x time of reseedAfterSeconds
	secsUntilFullFeed := reseedAfterSeconds() * 5

	// full feed at most once per minute
	if secsUntilFullFeed < 60 {
		secsUntilFullFeed = 60
	}

	return time.Duration(secsUntilFullFeed * int64(time.Second))
}

func fullFeeder(ctx context.Context) error {
	fullFeedDuration := 100 * time.Millisecond

	timer := clock.NewTimer(fullFeedDuration, "rng", "fullfeed")
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			rngLock.Lock()
		feedAll:
			for {
				select {
				case data := <-rngFeeder:
					rng.Reseed(data)
				default:
					break feedAll
				}
			}
			rngLock.Unlock()

		case <-ctx.Done():
			return nil
		}

		timer.Reset(getFullFeedDuration(), "rng", "fullfeed")
	}
}
