package playback

import (
	"errors"
	"fmt"
)

// Kind classifies a playback failure. None of them invalidate the turn the
// audio belongs to.
type Kind string

const (
	KindDisabled    Kind = "disabled"
	KindDecode      Kind = "decode"
	KindUnsupported Kind = "unsupported-format"
	KindDevice      Kind = "device"
	KindPlayer      Kind = "player"
)

// Error is a classified playback failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "playback failed (" + string(e.Kind) + ")"
	}
	return fmt.Sprintf("playback failed (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the playback kind, defaulting to KindPlayer.
func KindOf(err error) Kind {
	var pbErr *Error
	if errors.As(err, &pbErr) {
		return pbErr.Kind
	}
	return KindPlayer
}
