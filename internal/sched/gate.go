package sched

// Gate is the global mute state of the advisory table.
//
// Refresh is level-triggered: it re-derives the state from the predicate on
// every tick and only touches gains on a transition.
type Gate struct {
	enabled bool
}

func newGate() Gate { return Gate{enabled: true} }

// Enabled reports whether messages are currently audible.
func (g *Gate) Enabled() bool { return g.enabled }

// Refresh calls powered exactly once. On a transition it calls setGain with
// 0 (mute) or 1 (unmute) and reports true.
func (g *Gate) Refresh(powered func() bool, setGain func(gain float32)) bool {
	on := powered()
	if on == g.enabled {
		return false
	}
	if on {
		setGain(1)
	} else {
		setGain(0)
	}
	g.enabled = on
	return true
}
