package sched

import (
	"path/filepath"

	"tcasvoice/internal/advisory"
	"tcasvoice/internal/audio"
)

type tableEntry struct {
	handle audio.Handle
	gain   float32
}

// table maps every advisory message to its loaded resource.
type table struct {
	entries [advisory.NumMessages]tableEntry
}

// load loads every message in declaration order at gain 1. On failure it
// frees whatever this call loaded and returns the failing message.
func (t *table) load(b audio.Backend, dir string) error {
	for _, m := range advisory.All() {
		if t.entries[m].handle != audio.NoHandle {
			panic("sched: table entry loaded twice: " + m.String())
		}
		path := filepath.Join(dir, m.File())
		h, err := b.Load(path, m.File())
		if err == nil && h == audio.NoHandle {
			err = errNoHandle
		}
		if err != nil {
			t.free(b)
			return &LoadError{Message: m, Path: path, Err: err}
		}
		b.SetGain(h, 1)
		t.entries[m] = tableEntry{handle: h, gain: 1}
	}
	return nil
}

func (t *table) free(b audio.Backend) {
	for i := range t.entries {
		if t.entries[i].handle != audio.NoHandle {
			b.Free(t.entries[i].handle)
			t.entries[i] = tableEntry{}
		}
	}
}

func (t *table) setGain(b audio.Backend, gain float32) {
	for i := range t.entries {
		b.SetGain(t.entries[i].handle, gain)
		t.entries[i].gain = gain
	}
}

func (t *table) handle(m advisory.Message) audio.Handle { return t.entries[m].handle }
