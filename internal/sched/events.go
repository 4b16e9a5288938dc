package sched

import "tcasvoice/internal/advisory"

// Event types published on the event bus.
const (
	EventDispatched = "advisory.dispatched"
	EventMuted      = "gate.muted"
	EventUnmuted    = "gate.unmuted"
)

// Dispatch is the payload of EventDispatched.
type Dispatch struct {
	Message advisory.Message
	Audible bool
	Tick    uint64
}

// GateChange is the payload of EventMuted and EventUnmuted.
type GateChange struct {
	Enabled bool
	Tick    uint64
}
