package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitterPreservesOrder(t *testing.T) {
	var got []string
	e := NewEmitter(func(ev Event) { got = append(got, ev.Message) })

	e.Status("one")
	e.Emit(Event{Type: TypePlan, Message: "two"})
	e.Status("three")

	assert.Equal(t, []string{"one", "two", "three"}, got)
}

func TestEmitterNilSink(t *testing.T) {
	e := NewEmitter(nil)
	e.Status("dropped") // must not panic
}

func TestEmitterDisconnectStopsEmission(t *testing.T) {
	var count int
	e := NewEmitter(func(Event) { count++ })

	e.Status("before")
	e.Disconnect()
	e.Status("after")
	e.Disconnect()

	assert.Equal(t, 1, count)
}
