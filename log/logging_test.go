// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package log

import (
	"bytes"
	"flag"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	sync.Mutex
	buf bytes.Buffer
}

func (sb *syncBuffer) Write(p []byte) (int, error) {
	sb.Lock()
	defer sb.Unlock()
	return sb.buf.Write(p)
}

func (sb *syncBuffer) String() string {
	sb.Lock()
	defer sb.Unlock()
	return sb.buf.String()
}

func TestFlags(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"log", "flog"} {
		assert.NotNil(t, flag.Lookup(name), "missing flag -%s", name)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TraceLevel, ParseLevel("trace"))
	assert.Equal(t, WarningLevel, ParseLevel("WARNING"))
	assert.Equal(t, CriticalLevel, ParseLevel("critical"))
	assert.Equal(t, Severity(0), ParseLevel("loud"))
}

func TestFormatting(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", formatDuplicates(0))
	assert.Equal(t, " [3x]", formatDuplicates(2))

	line := &logLine{
		msg:       "seed cache ready",
		level:     InfoLevel,
		timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		file:      "/src/seedcache/module",
		line:      42,
	}
	formatted := formatLine(line, 1, false)
	assert.Contains(t, formatted, "240301 12:00:00.000")
	assert.Contains(t, formatted, "che/module:042")
	assert.Contains(t, formatted, "INFO")
	assert.Contains(t, formatted, "[2x]")
	assert.True(t, strings.HasSuffix(formatted, "seed cache ready"))

	assert.True(t, line.Equal(&logLine{msg: line.msg, level: line.level, file: line.file, line: line.line}))
	assert.False(t, line.Equal(&logLine{msg: "other", level: line.level, file: line.file, line: line.line}))
}

func TestLogging(t *testing.T) { //nolint:paralleltest // Changes global state.
	out := &syncBuffer{}
	SetOutput(out)

	// logged before start, must be kept
	Warning("early warning")

	err := Start()
	require.NoError(t, err, "start failed")

	SetLogLevel(TraceLevel)
	assert.Equal(t, TraceLevel, GetLogLevel())

	Trace("Trace")
	Debug("Debug")
	Info("Info")
	Warning("Warning")
	Error("Error")
	Critical("Critical")

	Tracef("Trace %s", "f")
	Debugf("Debug %s", "f")
	Infof("Info %s", "f")
	Warningf("Warning %s", "f")
	Errorf("Error %s", "f")
	Criticalf("Critical %s", "f")

	// play with levels
	SetLogLevel(CriticalLevel)
	Warning("suppressed warning")
	SetLogLevel(InfoLevel)

	// package levels override the global level
	SetPkgLevels(map[string]Severity{"log": TraceLevel})
	Debug("package debug")
	UnSetPkgLevels()

	// wait for the pre-start line to be submitted
	time.Sleep(20 * time.Millisecond)

	Shutdown()

	written := out.String()
	for _, expected := range []string{
		"early warning", "Trace f", "Debug f", "Info f", "Warning f", "Error f", "Critical f",
		"package debug", "LOGGING STOPPED",
	} {
		assert.Contains(t, written, expected)
	}
	assert.NotContains(t, written, "suppressed warning")

	assert.GreaterOrEqual(t, TotalWarningLogLines(), uint64(3))
	assert.GreaterOrEqual(t, TotalErrorLogLines(), uint64(2))
	assert.GreaterOrEqual(t, TotalCriticalLogLines(), uint64(2))
}
