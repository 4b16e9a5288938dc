package sched

import (
	"sync/atomic"

	"tcasvoice/internal/advisory"
)

const emptySlot int32 = -1

// Slot is a single-capacity mailbox for the next message to play.
// The newest Put wins; there is no queue and no back-pressure.
type Slot struct {
	v          atomic.Int32
	superseded atomic.Uint64
}

func newSlot() *Slot {
	s := &Slot{}
	s.v.Store(emptySlot)
	return s
}

// Put overwrites the slot.
func (s *Slot) Put(m advisory.Message) {
	if prev := s.v.Swap(int32(m)); prev != emptySlot {
		s.superseded.Add(1)
	}
}

// Take reads and clears the slot in one step.
func (s *Slot) Take() (advisory.Message, bool) {
	v := s.v.Swap(emptySlot)
	if v == emptySlot {
		return 0, false
	}
	return advisory.Message(v), true
}

func (s *Slot) clear() { s.v.Store(emptySlot) }

// Superseded counts requests overwritten before a tick consumed them.
func (s *Slot) Superseded() uint64 { return s.superseded.Load() }
