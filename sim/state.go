package sim

import (
	"strings"

	"github.com/pkg/errors"
)

// State is the session lifecycle position. Transitions only move forward
// through setup, then loop between scene loads and steps until close.
type State int

// The session states, in setup order.
const (
	StateUninitialized State = iota
	StateInitialized
	StateSensorsReady
	StateBridgeReady
	StateSceneLoaded
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateSensorsReady:
		return "sensors_ready"
	case StateBridgeReady:
		return "bridge_ready"
	case StateSceneLoaded:
		return "scene_loaded"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("session is closed")

func (e *Environment) expectState(op string, want ...State) error {
	if e.state == StateClosed {
		return errors.Wrap(ErrClosed, op)
	}
	for _, s := range want {
		if e.state == s {
			return nil
		}
	}
	wants := make([]string, 0, len(want))
	for _, s := range want {
		wants = append(wants, s.String())
	}
	return errors.Errorf("%s: session is %s, expected %s",
		op, e.state, strings.Join(wants, " or "))
}
