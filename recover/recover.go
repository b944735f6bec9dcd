// Package recover isolates subscriber and handler panics so one misbehaving
// callback cannot take down the live update layer.
package recover

import (
	"fmt"
	"runtime/debug"

	"github.com/taskpond/realtime/logger"
)

const (
	tagComponent = "component"
	tagEvent     = "event"
	tagLabel     = "label"
)

// ----------------------------------------------------
// Global panic hook (optional)
// ----------------------------------------------------

var OnPanic func(component, event string, recovered any)
var log logger.ILogger = logger.NewLogger("recover", "warn")

// SetLogger allows injecting a custom logger instance (e.g. for testing).
func SetLogger(l logger.ILogger) {
	log = l
}

// ----------------------------------------------------
// Panic recovery functions
// ----------------------------------------------------

// RecoverWithContext captures and logs a panic with metadata and optional data.
// Intended to be deferred.
func RecoverWithContext(component, event string, data any) {
	if r := recover(); r != nil {
		log.With(tagComponent, component).
			With(tagEvent, event).
			Error("panic: %v", r)

		if data != nil {
			log.With("context", fmt.Sprintf("%+v", data)).Error("panic context")
		}

		log.Error("stacktrace:\n%s", string(debug.Stack()))

		if OnPanic != nil {
			OnPanic(component, event, r)
		}
	}
}

// Safe runs the given function, recovering and logging any panic with label.
func Safe(label string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.With(tagLabel, label).Error("panic: %v", r)
			log.Error("stacktrace:\n%s", string(debug.Stack()))
			if OnPanic != nil {
				OnPanic("Safe", label, r)
			}
		}
	}()
	fn()
}
