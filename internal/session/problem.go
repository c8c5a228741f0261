package session

import (
	"context"
	"errors"

	"github.com/rbright/lingua/internal/fsm"
	"github.com/rbright/lingua/internal/packager"
	"github.com/rbright/lingua/internal/playback"
	"github.com/rbright/lingua/internal/recorder"
	"github.com/rbright/lingua/internal/tutorapi"
)

// ProblemKind groups failures by the remedy offered to the user.
type ProblemKind string

const (
	ProblemCapability     ProblemKind = "capability"
	ProblemPermission     ProblemKind = "permission"
	ProblemDevice         ProblemKind = "device"
	ProblemEmptyRecording ProblemKind = "empty-recording"
	ProblemSubmission     ProblemKind = "submission"
	ProblemPlayback       ProblemKind = "playback"
	ProblemGeneric        ProblemKind = "generic"
)

// Problem is a failure converted to user-facing copy.
type Problem struct {
	Kind      ProblemKind
	Message   string
	Retryable bool
	// Reauth means the user must sign in again rather than retry.
	Reauth bool
	Detail string
}

// UserMessage returns the copy shown for err.
func UserMessage(err error) string {
	return Describe(err).Message
}

// Describe classifies err into a Problem.
func Describe(err error) Problem {
	if err == nil {
		return Problem{}
	}
	p := describe(err)
	p.Detail = err.Error()
	return p
}

func describe(err error) Problem {
	var recErr *recorder.Error
	var subErr *tutorapi.SubmissionError
	var pbErr *playback.Error

	switch {
	case errors.Is(err, fsm.ErrRecordingUnsupported):
		return unsupportedProblem()
	case errors.As(err, &recErr):
		return recorderProblem(recErr.Kind)
	case errors.Is(err, packager.ErrEmptyRecording):
		return Problem{
			Kind:      ProblemEmptyRecording,
			Message:   "Nothing was recorded. Try again and speak a little louder or longer.",
			Retryable: true,
		}
	case errors.As(err, &subErr):
		return submissionProblem(subErr)
	case errors.As(err, &pbErr):
		return playbackProblem(pbErr.Kind)
	case errors.Is(err, context.Canceled):
		return Problem{Kind: ProblemGeneric, Message: "The recording was cancelled.", Retryable: true}
	default:
		return Problem{Kind: ProblemGeneric, Message: "Something went wrong. Please try again.", Retryable: true}
	}
}

func unsupportedProblem() Problem {
	return Problem{
		Kind:    ProblemCapability,
		Message: "Voice recording isn't available on this system. Run `lingua doctor` to see what is missing.",
	}
}

func recorderProblem(kind recorder.Kind) Problem {
	switch kind {
	case recorder.KindUnsupported:
		return unsupportedProblem()
	case recorder.KindPermission:
		return Problem{
			Kind:      ProblemPermission,
			Message:   "Microphone access was blocked. Allow access in your audio settings, then try again.",
			Retryable: true,
		}
	case recorder.KindNoDevice:
		return Problem{
			Kind:      ProblemDevice,
			Message:   "No microphone was found. Connect one and try again.",
			Retryable: true,
		}
	case recorder.KindDeviceBusy:
		return Problem{
			Kind:      ProblemDevice,
			Message:   "The microphone is in use by another application. Close it and try again.",
			Retryable: true,
		}
	default:
		return Problem{Kind: ProblemGeneric, Message: "Recording failed. Please try again.", Retryable: true}
	}
}

func submissionProblem(err *tutorapi.SubmissionError) Problem {
	p := Problem{Kind: ProblemSubmission, Retryable: err.Retryable()}
	switch err.Kind {
	case tutorapi.KindUnauthorized:
		p.Message = "Your session has expired. Please sign out and back in."
		p.Reauth = true
	case tutorapi.KindInvalidFormat:
		p.Message = "The tutor doesn't accept this recording format. Switch formats with recorder.encoder = \"wav\" or a different recorder.mime_preference, then try again."
	case tutorapi.KindUnprocessable:
		p.Message = "The tutor couldn't process this recording format. Switch formats with recorder.encoder = \"wav\" or a different recorder.mime_preference, then try again."
	case tutorapi.KindServer:
		p.Message = "The tutor service is having trouble. Please try again in a moment."
	case tutorapi.KindNetwork:
		p.Message = "Couldn't reach the tutor service. Check your connection and try again."
	case tutorapi.KindMalformedResponse:
		p.Message = "The tutor sent a response lingua doesn't understand. Please try again."
	default:
		p.Message = "The tutor couldn't process that recording. Please try again."
		if err.Detail != "" {
			p.Message = "The tutor couldn't process that recording: " + err.Detail
		}
	}
	return p
}

func playbackProblem(kind playback.Kind) Problem {
	p := Problem{Kind: ProblemPlayback, Retryable: true}
	switch kind {
	case playback.KindDisabled:
		p.Message = "Audio playback is turned off."
		p.Retryable = false
	case playback.KindUnsupported:
		p.Message = "The tutor's audio format can't be played on this system."
		p.Retryable = false
	case playback.KindDecode:
		p.Message = "The tutor's audio couldn't be decoded."
		p.Retryable = false
	case playback.KindDevice:
		p.Message = "No audio output is available."
	default:
		p.Message = "The tutor's audio couldn't be played."
	}
	return p
}
