package sched

import (
	"errors"
	"path/filepath"
	"sync"

	"tcasvoice/internal/audio"
)

// fakeBackend records every backend call. Loads of files listed in missing fail.
type fakeBackend struct {
	mu sync.Mutex

	initErr error
	missing map[string]bool

	running   bool
	inits     int
	shutdowns int
	next      audio.Handle
	loaded    map[audio.Handle]string
	gains     map[audio.Handle]float32
	gainSets  int
	plays     []string
	playGains []float32
	useAfter  int // calls on handles that are not loaded
}

func newFakeBackend(missing ...string) *fakeBackend {
	m := map[string]bool{}
	for _, f := range missing {
		m[f] = true
	}
	return &fakeBackend{missing: m, loaded: map[audio.Handle]string{}, gains: map[audio.Handle]float32{}}
}

func (f *fakeBackend) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	if f.initErr != nil {
		return f.initErr
	}
	f.running = true
	return nil
}

func (f *fakeBackend) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns++
	f.running = false
}

func (f *fakeBackend) Load(path, label string) (audio.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return audio.NoHandle, audio.ErrNotInitialized
	}
	if f.missing[filepath.Base(path)] {
		return audio.NoHandle, errors.New("no such file: " + path)
	}
	f.next++
	f.loaded[f.next] = label
	f.gains[f.next] = 1
	return f.next, nil
}

func (f *fakeBackend) Free(h audio.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.loaded[h]; !ok {
		f.useAfter++
	}
	delete(f.loaded, h)
	delete(f.gains, h)
}

func (f *fakeBackend) SetGain(h audio.Handle, gain float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.loaded[h]; !ok {
		f.useAfter++
		return
	}
	f.gainSets++
	f.gains[h] = gain
}

func (f *fakeBackend) Play(h audio.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	label, ok := f.loaded[h]
	if !ok {
		f.useAfter++
		return
	}
	f.plays = append(f.plays, label)
	f.playGains = append(f.playGains, f.gains[h])
}

func (f *fakeBackend) snapshot() *fakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := &fakeBackend{
		running:   f.running,
		inits:     f.inits,
		shutdowns: f.shutdowns,
		gainSets:  f.gainSets,
		useAfter:  f.useAfter,
		plays:     append([]string(nil), f.plays...),
		playGains: append([]float32(nil), f.playGains...),
		loaded:    map[audio.Handle]string{},
		gains:     map[audio.Handle]float32{},
	}
	for k, v := range f.loaded {
		cp.loaded[k] = v
	}
	for k, v := range f.gains {
		cp.gains[k] = v
	}
	return cp
}

// manualTicker runs the tick body only when the test calls fire.
type manualTicker struct {
	mu      sync.Mutex
	body    func()
	starts  int
	stops   int
	failing error
}

func (t *manualTicker) Start(body func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failing != nil {
		return t.failing
	}
	t.body = body
	t.starts++
	return nil
}

func (t *manualTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.body = nil
	t.stops++
}

func (t *manualTicker) fire() {
	t.mu.Lock()
	body := t.body
	t.mu.Unlock()
	if body != nil {
		body()
	}
}
