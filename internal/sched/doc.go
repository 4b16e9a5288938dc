// Package sched schedules playback of the advisory voice messages.
//
// # Overview
//
// Producers call Request with a message id. A Ticker drives the tick body at a
// steady interval; each tick drains the single-slot request mailbox,
// dispatches at most one play to the audio backend, and re-evaluates the
// powered predicate to mute or unmute every message.
//
// # Ticking
//
// Two Ticker implementations share the same tick body:
//   - HostTicker registers a re-arming callback with a host frame loop.
//   - ThreadTicker runs its own goroutine, waking every interval.
//
// Tick bodies never overlap, whichever ticker drives them.
//
// # Lifecycle
//
// Initialize is all-or-nothing: either the backend is up and every message
// is loaded, or nothing is. Teardown stops the ticker synchronously before
// freeing anything the tick body touches, and is safe to call repeatedly.
package sched
