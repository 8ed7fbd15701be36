package modules

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTest = errors.New("test error")

func TestWorker(t *testing.T) { //nolint:paralleltest // Too much interference expected.
	wModule := initNewModule("worker test module", nil, nil, nil)

	// test basic functionality
	err := wModule.RunWorker("test worker", func(ctx context.Context) error {
		return nil
	})
	assert.NoError(t, err, "worker failed (should not)")

	// test returning an error
	err = wModule.RunWorker("test worker", func(ctx context.Context) error {
		return errTest
	})
	assert.ErrorIs(t, err, errTest)

	// test service functionality
	failCnt := 0
	var sWTestGroup sync.WaitGroup
	sWTestGroup.Add(1)
	wModule.StartServiceWorker("test service-worker", 2*time.Millisecond, func(ctx context.Context) error {
		failCnt++
		t.Logf("service-worker test run #%d", failCnt)
		if failCnt >= 3 {
			sWTestGroup.Done()
			return nil
		}
		return errTest
	})
	// wait for service-worker to complete test
	sWTestGroup.Wait()
	assert.Equal(t, 3, failCnt, "service-worker failed to restart")

	// test panic recovery
	err = wModule.RunWorker("test worker", func(ctx context.Context) error {
		var a []byte
		_ = a[0]
		return nil
	})
	t.Logf("panic error message: %s", err)
	panicked, mErr := IsPanic(err)
	require.True(t, panicked, "failed to return *ModuleError, got %+v", err)
	assert.Equal(t, "worker", mErr.TaskType)
	assert.NotEmpty(t, mErr.StackTrace)
}

func TestWorkerStop(t *testing.T) { //nolint:paralleltest // Too much interference expected.
	wModule := initNewModule("worker stop module", nil, nil, nil)
	wModule.Started.Set()

	var running, stoppedWorkers int32
	for i := 0; i < 3; i++ {
		wModule.StartServiceWorker("waiting worker", 0, func(ctx context.Context) error {
			atomic.AddInt32(&running, 1)
			<-ctx.Done()
			atomic.AddInt32(&stoppedWorkers, 1)
			return ctx.Err()
		})
	}
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&running) == 3
	}, time.Second, time.Millisecond)

	require.NoError(t, wModule.stopWithTimeout())
	assert.Equal(t, int32(3), atomic.LoadInt32(&stoppedWorkers))
	assert.True(t, wModule.IsStopping())
	assert.False(t, wModule.Online())
}
