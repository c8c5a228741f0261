package audio

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"
)

var (
	// ErrPermissionDenied means the sound server refused access to the microphone.
	ErrPermissionDenied = errors.New("microphone access denied")
	// ErrNoDevice means no usable input source exists.
	ErrNoDevice = errors.New("no audio input device found")
	// ErrDeviceBusy means another client holds the input source exclusively.
	ErrDeviceBusy = errors.New("audio input device is busy")
)

// Classify wraps a capture failure with the matching sentinel so callers can
// distinguish permission, missing-device, and busy-device remedies. Errors
// that already carry a sentinel, or match none, are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrNoDevice) || errors.Is(err, ErrDeviceBusy) {
		return err
	}

	if errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}
	if errors.Is(err, syscall.EBUSY) {
		return fmt.Errorf("%w: %w", ErrDeviceBusy, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "access denied"), strings.Contains(msg, "permission denied"), strings.Contains(msg, "not authorized"):
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	case strings.Contains(msg, "busy"):
		return fmt.Errorf("%w: %w", ErrDeviceBusy, err)
	case strings.Contains(msg, "no such entity"), strings.Contains(msg, "no such device"), strings.Contains(msg, "resolve source"):
		return fmt.Errorf("%w: %w", ErrNoDevice, err)
	default:
		return err
	}
}
