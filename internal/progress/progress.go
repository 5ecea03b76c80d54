// Package progress defines the typed progress-event stream a generation
// request emits to its caller. Delivery order matches emission order; the
// sink is fire-and-forget with no acknowledgement or backpressure.
package progress

import "sync"

// Event types, in the rough order a successful generation emits them.
const (
	TypeStatus  = "status"
	TypePlan    = "plan"
	TypeWriting = "writing"
	TypeCreated = "created"
	TypeQuality = "quality"
	TypeDone    = "done"
	TypeError   = "error"
)

// Event is one progress signal.
type Event struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Sink receives events. A nil Sink makes every emission a no-op.
type Sink func(Event)

// Emitter serializes event delivery for one request and guards it with a
// disconnected flag. Disconnecting stops further emission but not the
// underlying work: cost already committed to a provider is recorded whether
// or not the client is still listening.
type Emitter struct {
	mu           sync.Mutex
	sink         Sink
	disconnected bool
}

// NewEmitter wraps a sink. A nil sink is allowed.
func NewEmitter(sink Sink) *Emitter {
	return &Emitter{sink: sink}
}

// Emit delivers one event unless the emitter is disconnected or sinkless.
func (e *Emitter) Emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disconnected || e.sink == nil {
		return
	}
	e.sink(ev)
}

// Status is shorthand for a status-typed message.
func (e *Emitter) Status(message string) {
	e.Emit(Event{Type: TypeStatus, Message: message})
}

// Disconnect stops all further emission. Safe to call more than once.
func (e *Emitter) Disconnect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disconnected = true
}
