// Package fsm defines the voice turn presentation states and their legal transitions.
package fsm

import (
	"errors"
	"fmt"
)

type State string

type Event string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
	StateComplete   State = "complete"
	StateError      State = "error"
)

const (
	EventStart     Event = "start"
	EventStop      Event = "stop"
	EventSubmitted Event = "submitted"
	EventFail      Event = "fail"
	EventRetry     Event = "retry"
	EventAck       Event = "ack"
)

var (
	// ErrRecordingUnsupported is returned when idle -> recording is refused by the capability guard.
	ErrRecordingUnsupported = errors.New("recording is not supported in this environment")
	// ErrInvalidTransition wraps every event that is illegal in the current state.
	ErrInvalidTransition = errors.New("invalid transition")
)

// Guards carries the external facts a transition may depend on.
type Guards struct {
	RecordingSupported bool
}

// Transition returns the next state for event, or the current state plus an error.
func Transition(current State, event Event, guards Guards) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			if !guards.RecordingSupported {
				return current, ErrRecordingUnsupported
			}
			return StateRecording, nil
		case EventFail:
			return StateError, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventStop:
			return StateProcessing, nil
		case EventFail:
			return StateError, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateProcessing:
		switch event {
		case EventSubmitted:
			return StateComplete, nil
		case EventFail:
			return StateError, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateComplete:
		switch event {
		case EventRetry:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateError:
		switch event {
		case EventAck:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Active reports whether a recording session is live or being finalized in state.
func Active(state State) bool {
	return state == StateRecording || state == StateProcessing
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("%w: %s --(%s)--> ?", ErrInvalidTransition, state, event)
}
