// Package log provides the package-level structured logger used across the
// scanner. It wraps logrus behind a small singleton, mirroring the shape of
// the teacher's pkg/util/log.DatadogLogger: a buffer holds log calls made
// before Setup runs, and is flushed once a real logger is installed.
package log

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu             sync.Mutex
	logger         = logrus.New()
	bufferPending  = true
	pendingEntries []func()
)

func init() {
	logger.SetLevel(logrus.InfoLevel)
}

// Setup installs the verbosity level requested by the configuration surface
// (spec.md's "verbose" option) and flushes anything logged before Setup ran.
func Setup(verbose bool) {
	mu.Lock()
	defer mu.Unlock()

	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	bufferPending = false
	pending := pendingEntries
	pendingEntries = nil
	for _, fn := range pending {
		fn()
	}
}

func buffer(fn func()) bool {
	mu.Lock()
	defer mu.Unlock()
	if bufferPending {
		pendingEntries = append(pendingEntries, fn)
		return true
	}
	return false
}

// Debugf logs a per-pid diagnostic trace, enabled by the "verbose" option.
func Debugf(format string, args ...interface{}) {
	if buffer(func() { Debugf(format, args...) }) {
		return
	}
	logger.Debugf(format, args...)
}

// Infof logs an informational message.
func Infof(format string, args ...interface{}) {
	if buffer(func() { Infof(format, args...) }) {
		return
	}
	logger.Infof(format, args...)
}

// Warnf logs a recoverable condition (spec.md 7's "recoverable" kind).
func Warnf(format string, args ...interface{}) {
	if buffer(func() { Warnf(format, args...) }) {
		return
	}
	logger.Warnf(format, args...)
}

// Errorf logs a fatal-path diagnostic. It does not exit the process; callers
// decide whether to abort.
func Errorf(format string, args ...interface{}) {
	if buffer(func() { Errorf(format, args...) }) {
		return
	}
	logger.Errorf(format, args...)
}
