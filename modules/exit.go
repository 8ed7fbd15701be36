package modules

import "sync/atomic"

var exitStatusCode int32

// SetExitStatusCode sets the exit code that the program shell return to the host after shutdown.
func SetExitStatusCode(n int) {
	atomic.StoreInt32(&exitStatusCode, int32(n))
}

// GetExitStatusCode waits for the shutdown to complete and then returns the exit code.
func GetExitStatusCode() int {
	<-shutdownCompleteSignal
	return int(atomic.LoadInt32(&exitStatusCode))
}
