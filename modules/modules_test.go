package modules

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	orderLock     sync.Mutex
	startOrder    string
	shutdownOrder string
)

func testPrep(t *testing.T, name string) func() error {
	t.Helper()
	return func() error {
		t.Logf("prep %s\n", name)
		return nil
	}
}

func testStart(t *testing.T, name string) func() error {
	t.Helper()
	return func() error {
		orderLock.Lock()
		defer orderLock.Unlock()
		t.Logf("start %s\n", name)
		startOrder = fmt.Sprintf("%s>%s", startOrder, name)
		return nil
	}
}

func testStop(t *testing.T, name string) func() error {
	t.Helper()
	return func() error {
		orderLock.Lock()
		defer orderLock.Unlock()
		t.Logf("stop %s\n", name)
		shutdownOrder = fmt.Sprintf("%s>%s", shutdownOrder, name)
		return nil
	}
}

func testFail() error {
	return errors.New("test error")
}

func testCleanExit() error {
	return ErrCleanExit
}

func resetModules() {
	modulesLock.Lock()
	defer modulesLock.Unlock()

	modules = make(map[string]*Module)
	startComplete.UnSet()
	startCompleteSignal = make(chan struct{})
	shutdownSignalClosed.UnSet()
	shutdownSignal = make(chan struct{})
	shutdownCompleteSignal = make(chan struct{})
	SetExitStatusCode(0)

	orderLock.Lock()
	defer orderLock.Unlock()
	startOrder = ""
	shutdownOrder = ""
}

func TestModules(t *testing.T) { //nolint:paralleltest // Too much interference expected.
	t.Run("TestModuleOrder", testModuleOrder)
	t.Run("TestModuleErrors", testModuleErrors)
}

func testModuleOrder(t *testing.T) {
	resetModules()

	Register("database", testPrep(t, "database"), testStart(t, "database"), testStop(t, "database"))
	Register("stats", testPrep(t, "stats"), testStart(t, "stats"), testStop(t, "stats"), "database")
	Register("service", testPrep(t, "service"), testStart(t, "service"), testStop(t, "service"), "database")
	Register("analytics", testPrep(t, "analytics"), testStart(t, "analytics"), testStop(t, "analytics"), "stats", "database")

	require.NoError(t, Start())
	assert.True(t, StartCompleted())

	if startOrder != ">database>service>stats>analytics" &&
		startOrder != ">database>stats>service>analytics" &&
		startOrder != ">database>stats>analytics>service" {
		t.Errorf("start order mismatch, was %s", startOrder)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ShuttingDown():
		case <-time.After(1 * time.Second):
			t.Error("did not receive shutdown signal")
		}
	}()
	require.NoError(t, Shutdown())
	assert.Error(t, Shutdown(), "second shutdown must fail")
	assert.Equal(t, 0, GetExitStatusCode())

	if shutdownOrder != ">analytics>service>stats>database" &&
		shutdownOrder != ">analytics>stats>service>database" &&
		shutdownOrder != ">service>analytics>stats>database" {
		t.Errorf("shutdown order mismatch, was %s", shutdownOrder)
	}

	wg.Wait()
}

func testModuleErrors(t *testing.T) {
	// test prep error
	resetModules()
	Register("prepfail", testFail, testStart(t, "prepfail"), testStop(t, "prepfail"))
	assert.Error(t, Start(), "should fail")

	// test prep clean exit
	resetModules()
	Register("prepcleanexit", testCleanExit, testStart(t, "prepcleanexit"), testStop(t, "prepcleanexit"))
	assert.ErrorIs(t, Start(), ErrCleanExit, "should fail with clean exit")

	// test invalid dependency
	resetModules()
	Register("database", nil, testStart(t, "database"), testStop(t, "database"), "invalid")
	assert.Error(t, Start(), "should fail")

	// test dependency loop
	resetModules()
	Register("database", nil, testStart(t, "database"), testStop(t, "database"), "helper")
	Register("helper", nil, testStart(t, "helper"), testStop(t, "helper"), "database")
	assert.Error(t, Start(), "should fail")

	// test failing module start
	resetModules()
	Register("startfail", nil, testFail, testStop(t, "startfail"))
	assert.Error(t, Start(), "should fail")

	// test failing module stop
	resetModules()
	Register("stopfail", nil, testStart(t, "stopfail"), testFail)
	Register("stopok", nil, testStart(t, "stopok"), testStop(t, "stopok"))
	require.NoError(t, Start(), "should not fail")
	err := Shutdown()
	require.Error(t, err, "should fail")
	assert.Contains(t, err.Error(), "stopfail")
	assert.Equal(t, ">stopok", shutdownOrder, "other modules must still be stopped")
	assert.Equal(t, 1, GetExitStatusCode())

	// test help flag
	resetModules()
	HelpFlag = true
	assert.ErrorIs(t, Start(), ErrCleanExit)
	HelpFlag = false

	resetModules()
}
