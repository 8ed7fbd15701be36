// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	output     io.Writer = os.Stdout
	outputLock sync.Mutex
	useColor   = true
)

// SetOutput sets the writer log lines are written to. Colors are disabled for
// any writer other than stdout.
func SetOutput(w io.Writer) {
	outputLock.Lock()
	defer outputLock.Unlock()

	output = w
	useColor = w == os.Stdout
}

func writeLine(line *logLine, duplicates uint64) {
	outputLock.Lock()
	defer outputLock.Unlock()

	fmt.Fprintln(output, formatLine(line, duplicates, useColor))
}

func startWriter() {
	shutdownWaitGroup.Add(1)
	go writer()
}

func writer() {
	var lastLine *logLine
	var duplicates uint64
	defer shutdownWaitGroup.Done()

	for {
		// reset
		lastLine = nil
		duplicates = 0

		// wait until logs need to be processed
		select {
		case <-logsWaiting:
			logsWaitingFlag.UnSet()
		case <-forceEmptyingOfBuffer:
		case <-shutdownSignal:
			finalizeWriting()
			return
		}

		// wait for timeslot to log
		select {
		case <-time.After(10 * time.Millisecond):
		case <-forceEmptyingOfBuffer:
		case <-shutdownSignal:
			finalizeWriting()
			return
		}

		// write all the logs!
	writeLoop:
		for {
			select {
			case nextLine := <-logBuffer:
				// first line we process, just assign to lastLine
				if lastLine == nil {
					lastLine = nextLine
					continue writeLoop
				}

				// we now have currentLine and lastLine

				// if currentLine and lastLine are equal, do not print, just increase counter
				if lastLine.Equal(nextLine) {
					duplicates++
					continue writeLoop
				}

				// if currentLine and line are _not_ equal, output lastLine
				writeLine(lastLine, duplicates)
				// reset duplicate counter
				duplicates = 0
				// set new last line
				lastLine = nextLine
			default:
				break writeLoop
			}
		}

		// write final line
		if lastLine != nil {
			writeLine(lastLine, duplicates)
		}
	}
}

func finalizeWriting() {
	for {
		select {
		case line := <-logBuffer:
			writeLine(line, 0)
		case <-time.After(10 * time.Millisecond):
			writeLine(&logLine{
				msg:       "===== LOGGING STOPPED =====",
				level:     WarningLevel,
				timestamp: time.Now(),
			}, 0)
			return
		}
	}
}
