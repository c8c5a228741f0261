package recorder

import (
	"errors"
	"fmt"

	"github.com/rbright/lingua/internal/audio"
)

// Kind classifies a start failure by the remedy the user needs.
type Kind string

const (
	KindPermission  Kind = "permission"
	KindNoDevice    Kind = "no-device"
	KindDeviceBusy  Kind = "device-busy"
	KindUnsupported Kind = "unsupported"
	KindGeneric     Kind = "generic"
)

var (
	// ErrSessionActive is returned by Start while another session holds the microphone.
	ErrSessionActive = errors.New("a recording session is already active")
	// ErrFrozen is returned when appending to a session that left recording.
	ErrFrozen = errors.New("recording session is frozen")
	// ErrUnsupported is the cause attached to KindUnsupported errors.
	ErrUnsupported = errors.New("audio recording is not supported on this system")
)

// Error is a classified recording failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "recording failed (" + string(e.Kind) + ")"
	}
	return fmt.Sprintf("recording failed (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind, defaulting to KindGeneric.
func KindOf(err error) Kind {
	var recErr *Error
	if errors.As(err, &recErr) {
		return recErr.Kind
	}
	return KindGeneric
}

// classify maps capture-layer sentinels onto recorder kinds.
func classify(err error) *Error {
	var recErr *Error
	if errors.As(err, &recErr) {
		return recErr
	}
	switch {
	case errors.Is(err, audio.ErrPermissionDenied):
		return &Error{Kind: KindPermission, Err: err}
	case errors.Is(err, audio.ErrNoDevice):
		return &Error{Kind: KindNoDevice, Err: err}
	case errors.Is(err, audio.ErrDeviceBusy):
		return &Error{Kind: KindDeviceBusy, Err: err}
	default:
		return &Error{Kind: KindGeneric, Err: err}
	}
}
