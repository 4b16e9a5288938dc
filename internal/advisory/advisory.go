// Package advisory defines the fixed catalogue of pre-recorded resolution
// and traffic advisory voice messages.
//
// The order of the catalogue is part of the contract: message ids are used
// as table indices and must stay stable across init/teardown cycles.
package advisory

import (
	"fmt"
	"strconv"
	"strings"
)

// Message identifies one advisory voice message.
type Message int

const (
	Climb Message = iota
	ClimbCrossing
	IncreaseClimb
	ClimbNow
	ClearOfConflict
	Descend
	DescendCrossing
	IncreaseDescent
	DescendNow
	MonitorVS
	MaintainVS
	MaintainVSCrossing
	LevelOff
	Traffic

	// NumMessages is the size of the catalogue.
	NumMessages int = iota
)

type entry struct {
	name string
	file string
}

var catalogue = [NumMessages]entry{
	Climb:              {"climb", "clb.wav"},
	ClimbCrossing:      {"climb_crossing", "clb_cross.wav"},
	IncreaseClimb:      {"increase_climb", "clb_more.wav"},
	ClimbNow:           {"climb_now", "clb_now.wav"},
	ClearOfConflict:    {"clear", "clear.wav"},
	Descend:            {"descend", "des.wav"},
	DescendCrossing:    {"descend_crossing", "des_cross.wav"},
	IncreaseDescent:    {"increase_descent", "des_more.wav"},
	DescendNow:         {"descend_now", "des_now.wav"},
	MonitorVS:          {"monitor_vs", "monitor_vs.wav"},
	MaintainVS:         {"maintain_vs", "maint_vs.wav"},
	MaintainVSCrossing: {"maintain_vs_crossing", "maint_vs_cross.wav"},
	LevelOff:           {"level_off", "level_off.wav"},
	Traffic:            {"traffic", "tfc.wav"},
}

// Valid reports whether m is inside the catalogue.
func (m Message) Valid() bool { return m >= 0 && int(m) < NumMessages }

func (m Message) String() string {
	if !m.Valid() {
		return "message(" + strconv.Itoa(int(m)) + ")"
	}
	return catalogue[m].name
}

// File returns the sound file name of m, relative to the sounds directory.
func (m Message) File() string {
	if !m.Valid() {
		return ""
	}
	return catalogue[m].file
}

// All returns every message in declaration order.
func All() []Message {
	out := make([]Message, NumMessages)
	for i := range out {
		out[i] = Message(i)
	}
	return out
}

// ParseMessage accepts a message name ("climb_now"), its file name
// ("clb_now.wav") or its numeric id ("3").
func ParseMessage(s string) (Message, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty message name")
	}
	if n, err := strconv.Atoi(s); err == nil {
		m := Message(n)
		if !m.Valid() {
			return 0, fmt.Errorf("message id %d out of range [0,%d)", n, NumMessages)
		}
		return m, nil
	}
	for i, e := range catalogue {
		if e.name == s || e.file == s || strings.TrimSuffix(e.file, ".wav") == s {
			return Message(i), nil
		}
	}
	return 0, fmt.Errorf("unknown message %q", s)
}
