package log

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

var (
	warnLogLines     = new(uint64)
	errLogLines      = new(uint64)
	critLogLines     = new(uint64)
	droppedLogLines  = new(uint64)
	preStartLogLines = new(int64)
)

// maxPreStartLines caps the number of lines that wait for Start().
const maxPreStartLines = 1000

func log(level Severity, msg string) {
	if !started.IsSet() {
		// keep logs from before logging started, up to a limit
		if atomic.AddInt64(preStartLogLines, 1) > maxPreStartLines {
			atomic.AddInt64(preStartLogLines, -1)
			atomic.AddUint64(droppedLogLines, 1)
			return
		}
		_, file, line := callerPosition(3)
		now := time.Now()
		go func() {
			defer atomic.AddInt64(preStartLogLines, -1)
			select {
			case <-startedSignal:
				submit(&logLine{
					msg:       msg,
					level:     level,
					timestamp: now,
					file:      file,
					line:      line,
				})
			case <-shutdownSignal:
			}
		}()
		return
	}

	// check if level is enabled
	if !pkgLevelsActive.IsSet() && uint32(level) < atomic.LoadUint32(logLevel) {
		return
	}

	// get file and line
	pkg, file, line := callerPosition(3)

	// check if level is enabled for package or generally
	if pkgLevelsActive.IsSet() {
		pkgLevelsLock.Lock()
		sev, ok := pkgLevels[pkg]
		pkgLevelsLock.Unlock()
		if ok {
			if level < sev {
				return
			}
		} else if uint32(level) < atomic.LoadUint32(logLevel) {
			return
		}
	}

	submit(&logLine{
		msg:       msg,
		level:     level,
		timestamp: time.Now(),
		file:      file,
		line:      line,
	})
}

func submit(line *logLine) {
	if shutdownFlag.IsSet() {
		atomic.AddUint64(droppedLogLines, 1)
		return
	}

	// count important lines
	switch line.level {
	case WarningLevel:
		atomic.AddUint64(warnLogLines, 1)
	case ErrorLevel:
		atomic.AddUint64(errLogLines, 1)
	case CriticalLevel:
		atomic.AddUint64(critLogLines, 1)
	}

	// send log to processing
	select {
	case logBuffer <- line:
	default:
	forceEmptying:
		for {
			select {
			case logBuffer <- line:
				break forceEmptying
			case forceEmptyingOfBuffer <- struct{}{}:
			case <-shutdownSignal:
				atomic.AddUint64(droppedLogLines, 1)
				return
			}
		}
	}

	// wake up writer if necessary
	if logsWaitingFlag.SetToIf(false, true) {
		select {
		case logsWaiting <- struct{}{}:
		default:
		}
	}
}

// callerPosition returns the package name, the shortened file path and the
// line of the caller at the given depth.
func callerPosition(depth int) (pkg, file string, line int) {
	_, file, line, ok := runtime.Caller(depth)
	if !ok {
		return "", "", 0
	}
	if len(file) > 3 {
		file = file[:len(file)-3]
	} else {
		file = ""
	}
	parts := strings.Split(file, "/")
	if len(parts) >= 2 {
		pkg = parts[len(parts)-2]
	}
	return pkg, file, line
}

func fastcheck(level Severity) bool {
	if pkgLevelsActive.IsSet() {
		return true
	}
	if uint32(level) >= atomic.LoadUint32(logLevel) {
		return true
	}
	return false
}

// Trace is used to log tiny steps.
func Trace(msg string) {
	if fastcheck(TraceLevel) {
		log(TraceLevel, msg)
	}
}

// Tracef is used to log tiny steps.
func Tracef(format string, things ...interface{}) {
	if fastcheck(TraceLevel) {
		log(TraceLevel, fmt.Sprintf(format, things...))
	}
}

// Debug is used to log minor errors or unexpected events. These occurrences are usually not worth mentioning in itself, but they might hint at a bigger problem.
func Debug(msg string) {
	if fastcheck(DebugLevel) {
		log(DebugLevel, msg)
	}
}

// Debugf is used to log minor errors or unexpected events. These occurrences are usually not worth mentioning in itself, but they might hint at a bigger problem.
func Debugf(format string, things ...interface{}) {
	if fastcheck(DebugLevel) {
		log(DebugLevel, fmt.Sprintf(format, things...))
	}
}

// Info is used to log mildly significant events. Should be used to inform about somewhat bigger or user affecting events that happen.
func Info(msg string) {
	if fastcheck(InfoLevel) {
		log(InfoLevel, msg)
	}
}

// Infof is used to log mildly significant events. Should be used to inform about somewhat bigger or user affecting events that happen.
func Infof(format string, things ...interface{}) {
	if fastcheck(InfoLevel) {
		log(InfoLevel, fmt.Sprintf(format, things...))
	}
}

// Warning is used to log (potentially) bad events, but nothing broke (even a little) and there is no need to panic yet.
func Warning(msg string) {
	if fastcheck(WarningLevel) {
		log(WarningLevel, msg)
	}
}

// Warningf is used to log (potentially) bad events, but nothing broke (even a little) and there is no need to panic yet.
func Warningf(format string, things ...interface{}) {
	if fastcheck(WarningLevel) {
		log(WarningLevel, fmt.Sprintf(format, things...))
	}
}

// Error is used to log errors that break or impair functionality. The task/process may have to be aborted and tried again later. The system is still operational.
func Error(msg string) {
	if fastcheck(ErrorLevel) {
		log(ErrorLevel, msg)
	}
}

// Errorf is used to log errors that break or impair functionality. The task/process may have to be aborted and tried again later. The system is still operational.
func Errorf(format string, things ...interface{}) {
	if fastcheck(ErrorLevel) {
		log(ErrorLevel, fmt.Sprintf(format, things...))
	}
}

// Critical is used to log events that completely break the system. Operation cannot continue. User/Admin must be informed.
func Critical(msg string) {
	if fastcheck(CriticalLevel) {
		log(CriticalLevel, msg)
	}
}

// Criticalf is used to log events that completely break the system. Operation cannot continue. User/Admin must be informed.
func Criticalf(format string, things ...interface{}) {
	if fastcheck(CriticalLevel) {
		log(CriticalLevel, fmt.Sprintf(format, things...))
	}
}

// TotalWarningLogLines returns the total amount of warning log lines since start of the program.
func TotalWarningLogLines() uint64 {
	return atomic.LoadUint64(warnLogLines)
}

// TotalErrorLogLines returns the total amount of error log lines since start of the program.
func TotalErrorLogLines() uint64 {
	return atomic.LoadUint64(errLogLines)
}

// TotalCriticalLogLines returns the total amount of critical log lines since start of the program.
func TotalCriticalLogLines() uint64 {
	return atomic.LoadUint64(critLogLines)
}

// TotalDroppedLogLines returns the total amount of log lines that could not be written.
func TotalDroppedLogLines() uint64 {
	return atomic.LoadUint64(droppedLogLines)
}
