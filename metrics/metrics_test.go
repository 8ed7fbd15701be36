package metrics

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/seedcache/config"
)

func TestFormatLabeledID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "seedcache_cache_lookups_total", formatLabeledID("cache/lookups/total", nil))
	assert.Equal(
		t,
		`seedcache_cache_lookups_total{a="1",b="2"}`,
		formatLabeledID("cache/lookups/total", map[string]string{"b": "2", "a": "1"}),
	)
}

func TestInvalidID(t *testing.T) {
	t.Parallel()

	_, err := NewCounter("test/invalid-id", nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidID))

	_, err = NewCounter("test/invalid_label", map[string]string{"no-dash": "x"}, nil)
	assert.True(t, errors.Is(err, ErrInvalidID))
}

func TestCounterAndGauge(t *testing.T) {
	t.Parallel()

	counter, err := NewCounter("test/counter/total", nil, nil)
	require.NoError(t, err)
	counter.Add(3)
	assert.Equal(t, uint64(3), counter.Get())

	_, err = NewCounter("test/counter/total", nil, nil)
	assert.True(t, errors.Is(err, ErrAlreadyRegistered))

	_, err = NewGauge("test/gauge", map[string]string{"kind": "fixed"}, func() float64 {
		return 42
	}, nil)
	require.NoError(t, err)

	var fetched uint64 = 7
	fc, err := NewFetchingCounter("test/fetching/total", nil, func() uint64 {
		return fetched
	}, &Options{
		ExpertiseLevel: config.ExpertiseLevelDeveloper,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), fc.CurrentValue())

	// Developer level metrics are hidden from users.
	buf := &bytes.Buffer{}
	WriteMetrics(buf, config.ExpertiseLevelUser)
	out := buf.String()
	assert.Contains(t, out, "seedcache_test_counter_total 3")
	assert.Contains(t, out, `seedcache_test_gauge{kind="fixed"} 42`)
	assert.NotContains(t, out, "seedcache_test_fetching_total")

	buf.Reset()
	WriteMetrics(buf, config.ExpertiseLevelDeveloper)
	assert.Contains(t, buf.String(), "seedcache_test_fetching_total 7")
}
