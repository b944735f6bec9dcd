package recover_test

import (
	"testing"

	"github.com/taskpond/realtime/logger"
	recoverpkg "github.com/taskpond/realtime/recover"

	"github.com/stretchr/testify/assert"
)

var panicHookTriggered bool
var panicCapturedComponent, panicCapturedEvent string
var panicCapturedValue any

func TestMain(m *testing.M) {
	recoverpkg.SetLogger(logger.Nop())
	recoverpkg.OnPanic = func(component, event string, r any) {
		panicHookTriggered = true
		panicCapturedComponent = component
		panicCapturedEvent = event
		panicCapturedValue = r
	}
	m.Run()
}

func TestRecoverWithContext(t *testing.T) {
	panicHookTriggered = false

	func() {
		defer recoverpkg.RecoverWithContext("bus", "job.update", map[string]any{"meta": 1})
		panic("test1")
	}()
	assert.True(t, panicHookTriggered)
	assert.Equal(t, "bus", panicCapturedComponent)
	assert.Equal(t, "job.update", panicCapturedEvent)
	assert.Equal(t, "test1", panicCapturedValue)
}

func TestSafe(t *testing.T) {
	panicHookTriggered = false

	recoverpkg.Safe("subscriber", func() { panic("boom") })
	assert.True(t, panicHookTriggered)
	assert.Equal(t, "boom", panicCapturedValue)

	panicHookTriggered = false
	recoverpkg.Safe("subscriber", func() {})
	assert.False(t, panicHookTriggered)
}
