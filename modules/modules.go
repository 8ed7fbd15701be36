package modules

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tevino/abool"
)

var (
	modulesLock sync.RWMutex
	modules     = make(map[string]*Module)

	// ErrCleanExit is returned by Start() when the program is interrupted before starting. This can happen for example, when using the "--help" flag.
	ErrCleanExit = errors.New("clean exit requested")
)

// Module represents a module.
type Module struct {
	Name string

	// lifecycle mgmt
	Prepped         *abool.AtomicBool
	Started         *abool.AtomicBool
	Stopped         *abool.AtomicBool
	inTransition    *abool.AtomicBool
	ctrlFuncRunning *abool.AtomicBool

	// lifecycle callback functions
	prep  func() error
	start func() error
	stop  func() error

	// shutdown mgmt
	Ctx                context.Context
	cancelCtx          func()
	stopFlag           *abool.AtomicBool
	stopComplete       chan struct{}
	stopCompleteClosed *abool.AtomicBool
	workerCnt          *int32

	// dependency mgmt
	depNames   []string
	depModules []*Module
	depReverse []*Module
}

// IsStopping returns whether the module has started shutting down. In most cases, you should use Stopping instead.
func (m *Module) IsStopping() bool {
	return m.stopFlag.IsSet()
}

// Stopping returns a channel that is closed when the module starts shutting down.
func (m *Module) Stopping() <-chan struct{} {
	return m.Ctx.Done()
}

// Online returns whether the module is started and not yet stopping.
func (m *Module) Online() bool {
	return m.Started.IsSet() && !m.stopFlag.IsSet()
}

// Register registers a new module. The control functions `prep`, `start` and `stop` are technically optional. `stop` is called _after_ all added module workers finished.
func Register(name string, prep, start, stop func() error, dependencies ...string) *Module {
	newModule := initNewModule(name, prep, start, stop, dependencies...)

	modulesLock.Lock()
	defer modulesLock.Unlock()
	modules[name] = newModule
	return newModule
}

func initNewModule(name string, prep, start, stop func() error, dependencies ...string) *Module {
	ctx, cancelCtx := context.WithCancel(context.Background())
	var workerCnt int32

	newModule := &Module{
		Name:               name,
		Prepped:            abool.NewBool(false),
		Started:            abool.NewBool(false),
		Stopped:            abool.NewBool(false),
		inTransition:       abool.NewBool(false),
		ctrlFuncRunning:    abool.NewBool(false),
		prep:               prep,
		start:              start,
		stop:               stop,
		Ctx:                ctx,
		cancelCtx:          cancelCtx,
		stopFlag:           abool.NewBool(false),
		stopComplete:       make(chan struct{}),
		stopCompleteClosed: abool.NewBool(false),
		workerCnt:          &workerCnt,
		depNames:           dependencies,
	}

	return newModule
}

func (m *Module) checkIfStopComplete() {
	if m.stopFlag.IsSet() &&
		atomic.LoadInt32(m.workerCnt) == 0 &&
		m.stopCompleteClosed.SetToIf(false, true) {
		close(m.stopComplete)
	}
}

func initDependencies() error {
	for _, m := range modules {
		m.depModules = nil
		m.depReverse = nil
	}

	for _, m := range modules {
		for _, depName := range m.depNames {
			// get dependency
			depModule, ok := modules[depName]
			if !ok {
				return fmt.Errorf("module %s declares dependency \"%s\", but this module has not been registered", m.Name, depName)
			}

			// link together
			m.depModules = append(m.depModules, depModule)
			depModule.depReverse = append(depModule.depReverse, m)
		}
	}

	return nil
}

// ReadyToPrep returns whether all dependencies are ready for this module to prep.
func (m *Module) ReadyToPrep() bool {
	if m.inTransition.IsSet() || m.Prepped.IsSet() {
		return false
	}

	for _, dep := range m.depModules {
		if !dep.Prepped.IsSet() {
			return false
		}
	}

	return true
}

// ReadyToStart returns whether all dependencies are ready for this module to start.
func (m *Module) ReadyToStart() bool {
	if m.inTransition.IsSet() || m.Started.IsSet() {
		return false
	}

	for _, dep := range m.depModules {
		if !dep.Started.IsSet() {
			return false
		}
	}

	return true
}

// ReadyToStop returns whether all dependencies are ready for this module to stop.
func (m *Module) ReadyToStop() bool {
	if !m.Started.IsSet() || m.inTransition.IsSet() || m.Stopped.IsSet() {
		return false
	}

	for _, revDep := range m.depReverse {
		// not ready if a reverse dependency was started, but not yet stopped
		if revDep.Started.IsSet() && !revDep.Stopped.IsSet() {
			return false
		}
	}

	return true
}
