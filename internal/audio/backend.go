// Package audio holds the capability set the advisory scheduler needs from
// an audio output layer, and a PCM backend implementing it.
package audio

import "errors"

// Handle is an opaque reference to a loaded sound resource.
// The zero Handle never refers to a loaded resource.
type Handle uint32

// NoHandle is the invalid handle.
const NoHandle Handle = 0

var (
	ErrNotInitialized     = errors.New("audio: backend not initialized")
	ErrAlreadyInitialized = errors.New("audio: backend already initialized")
)

// Backend loads, frees and plays sound resources.
//
// Play is fire-and-forget: there is no completion signal and no error channel.
// Gains are in [0,1].
type Backend interface {
	Init() error
	Shutdown()

	Load(path, label string) (Handle, error)
	Free(h Handle)
	SetGain(h Handle, gain float32)
	Play(h Handle)
}
