package modules

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/tevino/abool"

	"github.com/safing/seedcache/log"
)

var (
	shutdownSignal         = make(chan struct{})
	shutdownSignalClosed   = abool.NewBool(false)
	shutdownCompleteSignal = make(chan struct{})
)

// IsShuttingDown returns whether the global shutdown is in progress.
func IsShuttingDown() bool {
	return shutdownSignalClosed.IsSet()
}

// ShuttingDown returns a channel read on the global shutdown signal.
func ShuttingDown() <-chan struct{} {
	return shutdownSignal
}

// Shutdown stops all modules in the correct order.
func Shutdown() error {
	// lock mgmt
	if !shutdownSignalClosed.SetToIf(false, true) {
		// shutdown was already issued
		return errors.New("shutdown already initiated")
	}
	close(shutdownSignal)

	if startComplete.IsSet() {
		log.Warning("modules: starting shutdown...")
	} else {
		log.Warning("modules: aborting, shutting down...")
	}

	err := stopModules()
	if err != nil {
		log.Errorf("modules: shutdown completed with error: %s", err)
		SetExitStatusCode(1)
	} else {
		log.Info("modules: shutdown completed")
	}

	log.Shutdown()
	close(shutdownCompleteSignal)
	return err
}

func stopModules() error {
	var rep *report
	var errs *multierror.Error
	reports := make(chan *report)
	execCnt := 0
	reportCnt := 0

	modulesLock.RLock()
	defer modulesLock.RUnlock()

	for {
		// find modules to exec
		for _, m := range modules {
			if m.ReadyToStop() {
				execCnt++
				m.inTransition.Set()

				execM := m
				go func() {
					reports <- &report{
						module: execM,
						err:    execM.stopWithTimeout(),
					}
				}()
			}
		}

		// nothing left to stop
		if execCnt == reportCnt {
			return errs.ErrorOrNil()
		}

		// wait for reports
		rep = <-reports
		rep.module.inTransition.UnSet()
		rep.module.Stopped.Set()
		reportCnt++
		if rep.err != nil {
			errs = multierror.Append(errs, fmt.Errorf("modules: could not stop module %s: %w", rep.module.Name, rep.err))
			continue
		}
		log.Infof("modules: stopped %s", rep.module.Name)
	}
}

func (m *Module) stopWithTimeout() error {
	// signal stop to workers
	m.stopFlag.Set()
	m.cancelCtx()

	// wait for workers
	if atomic.LoadInt32(m.workerCnt) > 0 {
		m.checkIfStopComplete()
		select {
		case <-m.stopComplete:
		case <-time.After(3 * time.Second):
			log.Warningf(
				"%s: timed out while waiting for %d workers to finish",
				m.Name,
				atomic.LoadInt32(m.workerCnt),
			)
		}
	}

	// call shutdown function
	return m.runCtrlFnWithTimeout("stop module", 10*time.Second, m.stop)
}
