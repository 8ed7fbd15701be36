package seedcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/quartz"

	"github.com/safing/seedcache/config"
	"github.com/safing/seedcache/log"
	"github.com/safing/seedcache/metrics"
	"github.com/safing/seedcache/modules"
	"github.com/safing/seedcache/rng"
)

// Configuration Keys.
var (
	CfgOptionCapacityKey = "seedcache/capacity"
	capacityOption       config.IntOption

	CfgOptionPreloadKeyKey = "seedcache/preload_key"
	preloadKeyOption       config.StringOption

	CfgOptionRefreshIntervalKey = "seedcache/refresh_interval"
	refreshIntervalOption       config.IntOption

	CfgOptionSourceKey = "seedcache/source"
	sourceOption       config.StringOption
)

var (
	module *modules.Module
	clock  quartz.Clock = quartz.NewReal()
)

func init() {
	module = modules.Register("seedcache", prep, start, stop, "random", "metrics")
}

func prep() error {
	err := config.Register(&config.Option{
		Name:            "Cache Capacity",
		Key:             CfgOptionCapacityKey,
		Description:     "Number of seeds held by the cache.",
		OptType:         config.OptTypeInt,
		ExpertiseLevel:  config.ExpertiseLevelExpert,
		ReleaseLevel:    config.ReleaseLevelStable,
		RequiresRestart: true,
		DefaultValue:    1_000_000,
		ValidationRegex: "^([1-9][0-9]{0,6}|10000000)$",
	})
	if err != nil {
		return err
	}
	capacityOption = config.Concurrent.GetAsInt(CfgOptionCapacityKey, 1_000_000)

	err = config.Register(&config.Option{
		Name:            "Preload Key",
		Key:             CfgOptionPreloadKeyKey,
		Description:     "Key mixed into the seeds when the cache is populated on start and on refresh. Leave empty to keep the initial fill.",
		OptType:         config.OptTypeString,
		ExpertiseLevel:  config.ExpertiseLevelExpert,
		ReleaseLevel:    config.ReleaseLevelStable,
		DefaultValue:    "seedcache",
	})
	if err != nil {
		return err
	}
	preloadKeyOption = config.Concurrent.GetAsString(CfgOptionPreloadKeyKey, "seedcache")

	err = config.Register(&config.Option{
		Name:            "Refresh Interval",
		Key:             CfgOptionRefreshIntervalKey,
		Description:     "Repopulate the cache every x seconds. Set to 0 to disable.",
		OptType:         config.OptTypeInt,
		ExpertiseLevel:  config.ExpertiseLevelExpert,
		ReleaseLevel:    config.ReleaseLevelStable,
		RequiresRestart: true,
		DefaultValue:    0,
		ValidationRegex: "^[0-9]{1,6}$",
	})
	if err != nil {
		return err
	}
	refreshIntervalOption = config.Concurrent.GetAsInt(CfgOptionRefreshIntervalKey, 0)

	err = config.Register(&config.Option{
		Name:            "Seed Source",
		Key:             CfgOptionSourceKey,
		Description:     "Entropy used when populating: \"mix\" mixes in a monotonic clock, \"fortuna\" reads from the fortuna RNG.",
		OptType:         config.OptTypeString,
		ExpertiseLevel:  config.ExpertiseLevelExpert,
		ReleaseLevel:    config.ReleaseLevelStable,
		RequiresRestart: true,
		DefaultValue:    "mix",
		ValidationRegex: "^(mix|fortuna)$",
	})
	if err != nil {
		return err
	}
	sourceOption = config.Concurrent.GetAsString(CfgOptionSourceKey, "mix")

	return nil
}

func start() error {
	capacity := int(capacityOption())

	var opts []Option
	switch sourceOption() {
	case "fortuna":
		opts = append(opts, WithSource(NewReaderSource(rng.Reader)))
	default:
		opts = append(opts, WithClock(clock))
	}

	err := Create(capacity, opts...)
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyExists):
		log.Warningf("seedcache: using already existing cache")
	default:
		return fmt.Errorf("failed to create cache: %w", err)
	}

	if key := preloadKeyOption(); key != "" {
		if err := Populate([]byte(key), capacity); err != nil {
			return fmt.Errorf("failed to preload cache: %w", err)
		}
	}

	if err := registerMetrics(); err != nil {
		return err
	}

	if interval := refreshIntervalOption(); interval > 0 {
		module.StartServiceWorker("refresher", 0, func(ctx context.Context) error {
			return refresher(ctx, time.Duration(interval)*time.Second)
		})
	}

	return nil
}

func stop() error {
	if c := Acquire(); c != nil {
		stats := c.Stats()
		log.Infof(
			"seedcache: destroying cache %s after %d hits and %d misses",
			c.ID,
			stats.Hits,
			stats.Misses,
		)
		c.Release()
	}

	Destroy()
	return nil
}

func refresher(ctx context.Context, interval time.Duration) error {
	ticker := clock.NewTicker(interval, "seedcache", "refresh")
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			key := preloadKeyOption()
			if key == "" {
				continue
			}
			c := Acquire()
			if c == nil {
				continue
			}
			err := c.Populate([]byte(key), c.Capacity())
			c.Release()
			if err != nil {
				return fmt.Errorf("failed to refresh cache: %w", err)
			}
			log.Tracef("seedcache: refreshed cache %s", c.ID)
		}
	}
}

var metricsRegistered bool

func registerMetrics() error {
	if metricsRegistered {
		return nil
	}

	_, err := metrics.NewFetchingCounter(
		"cache/lookups/total",
		nil,
		lookups.Load,
		&metrics.Options{
			Name: "Seed Cache Lookups",
		},
	)
	if err != nil {
		return err
	}

	_, err = metrics.NewFetchingCounter(
		"cache/fallbacks/total",
		nil,
		fallbacks.Load,
		&metrics.Options{
			Name: "Seed Cache Fallbacks",
		},
	)
	if err != nil {
		return err
	}

	_, err = metrics.NewFetchingCounter(
		"cache/populates/total",
		nil,
		populates.Load,
		&metrics.Options{
			Name: "Seed Cache Populates",
		},
	)
	if err != nil {
		return err
	}

	_, err = metrics.NewGauge(
		"cache/capacity",
		nil,
		func() float64 {
			c := Acquire()
			if c == nil {
				return 0
			}
			defer c.Release()
			return float64(c.Capacity())
		},
		&metrics.Options{
			Name: "Seed Cache Capacity",
		},
	)
	if err != nil {
		return err
	}

	metricsRegistered = true
	return nil
}
