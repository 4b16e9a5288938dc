package sched

import (
	"errors"
	"fmt"

	"tcasvoice/internal/advisory"
)

// ErrBackendInit is returned by Initialize when the audio backend fails to
// start. No resource has been touched.
var ErrBackendInit = errors.New("audio backend init failed")

var errNoHandle = errors.New("backend returned no handle")

// LoadError is returned by Initialize when a message fails to load. Every
// resource loaded by that call has been freed and the backend shut down.
type LoadError struct {
	Message advisory.Message
	Path    string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load advisory %s from %s: %v", e.Message, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
