package common

import (
	"fmt"
	"runtime"

	"github.com/devlights/gomy/output"
)

type LogLevel int32

const (
	DEBUG_INFO_DETAIL LogLevel = 1
	DEBUG_INFO                 = 2
	RDB_OP_FUNC_CALL           = 4
	DEBUGGING                  = 8
	INFO                       = 16
	WARN                       = 32
	ERROR                      = 64
	FATAL                      = 128
)

// LogLevelSetting is a bitmask of the log levels that ShPrintf actually emits.
var LogLevelSetting LogLevel = INFO | WARN | ERROR | FATAL

func ShPrintf(logLevel LogLevel, fmtStl string, a ...interface{}) {
	if logLevel&LogLevelSetting > 0 {
		fmt.Printf(fmtStl, a...)
	}
}

// DumpGoroutineStack prints all goroutine stacks for advisory debugging. Used
// by the lock manager when it aborts a deadlock victim so a developer can see
// where the aborted goroutine was blocked. Never affects control flow.
func DumpGoroutineStack(logLevel LogLevel, reason string) {
	if logLevel&LogLevelSetting == 0 {
		return
	}
	buf := make([]byte, 1<<16)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}
	output.Stdoutl(fmt.Sprintf("=== deadlock victim abort (%s) ", reason), string(buf))
}
