package ws

import (
	"fmt"
	"sync/atomic"
)

// ConnState is the lifecycle state of a single subscription connection.
type ConnState int32

// Happy path runs idle, connecting, handshaking, subscribed, streaming, closing, closed.
// A rejected handshake ends in failed.
const (
	StateIdle ConnState = iota
	StateConnecting
	StateHandshaking
	StateSubscribed
	StateStreaming
	StateClosing
	StateClosed
	StateFailed
)

// String returns the string representation of the connection state.
func (s ConnState) String() string {
	names := [...]string{
		"idle",
		"connecting",
		"handshaking",
		"subscribed",
		"streaming",
		"closing",
		"closed",
		"failed",
	}
	if s < 0 || int(s) >= len(names) {
		return fmt.Sprintf("ConnState(%d)", int32(s))
	}
	return names[s]
}

// Terminal reports whether no further transitions are possible.
func (s ConnState) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

// State provides thread-safe atomic access to a ConnState value.
type State struct {
	state atomic.Int32
}

// Load returns the current connection state.
func (s *State) Load() ConnState {
	return ConnState(s.state.Load())
}

// Store sets the connection state to the given value.
func (s *State) Store(state ConnState) {
	s.state.Store(int32(state))
}

// CompareAndSwap atomically compares the current state with old and swaps to new if equal.
// It returns true if the swap was performed.
func (s *State) CompareAndSwap(old, new ConnState) bool {
	return s.state.CompareAndSwap(int32(old), int32(new))
}

// Transition moves from old to new or reports the state that blocked it.
func (s *State) Transition(old, new ConnState) error {
	if s.CompareAndSwap(old, new) {
		return nil
	}
	return fmt.Errorf("invalid transition %s -> %s from state %s", old, new, s.Load())
}
