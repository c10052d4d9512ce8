package logger

import (
	"runtime"
	"strconv"
	"strings"
)

// ExternalCaller walks the call stack and returns "file:line" of the first
// frame outside this module's logger packages and the underlying logging
// libraries. It returns an empty string if no such frame is found within 15
// frames.
func ExternalCaller() string {
	pc := make([]uintptr, 15)
	n := runtime.Callers(2, pc)
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pc[:n])
	for {
		frame, more := frames.Next()
		if !isInternalFrame(frame.Function) {
			return frame.File + ":" + strconv.Itoa(frame.Line)
		}
		if !more {
			break
		}
	}

	return ""
}

var internalPackages = []string{
	"github.com/ekristen/go-otelkit/logger",
	"github.com/rs/zerolog",
	"go.uber.org/zap",
	"github.com/sirupsen/logrus",
	"runtime.",
}

// isInternalFrame reports whether fn belongs to a package whose frames are
// skipped when reporting the caller.
func isInternalFrame(fn string) bool {
	for _, pkg := range internalPackages {
		if strings.HasPrefix(fn, pkg) {
			return true
		}
	}
	return false
}
