package session

import (
	"context"

	"github.com/rbright/lingua/internal/packager"
	"github.com/rbright/lingua/internal/recorder"
	"github.com/rbright/lingua/internal/tutorapi"
)

// Capture is the recording half of a turn. *recorder.Recorder satisfies it.
type Capture interface {
	Start(ctx context.Context) error
	Stop()
	Done() <-chan recorder.Result
}

// Submission describes the packaged upload for the debug panel.
type Submission struct {
	AudioBytes int
	MIMEType   string
	FileName   string
	StatusCode int
}

// Submitter packages a frozen recording and sends it to the tutor. It must
// not contact the backend when the recording is empty.
type Submitter interface {
	Submit(ctx context.Context, rec packager.Source, threadID string) (tutorapi.TutorVoiceResult, Submission, error)
}

// Player is the playback surface. *playback.Controller satisfies it.
type Player interface {
	Play(ctx context.Context, id string, audioBase64 string) error
	Stop()
	Playing() (string, bool)
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowRecording(context.Context)
	ShowProcessing(context.Context)
	ShowComplete(context.Context, string)
	ShowError(context.Context, string)
	CueStop(context.Context)
	Hide(context.Context)
	// Settle returns once pending cues are done so speech never overlaps them.
	Settle(context.Context)
}

type noopIndicator struct{}

func (noopIndicator) ShowRecording(context.Context)        {}
func (noopIndicator) ShowProcessing(context.Context)       {}
func (noopIndicator) ShowComplete(context.Context, string) {}
func (noopIndicator) ShowError(context.Context, string)    {}
func (noopIndicator) CueStop(context.Context)              {}
func (noopIndicator) Hide(context.Context)                 {}
func (noopIndicator) Settle(context.Context)               {}

type noopPlayer struct{}

func (noopPlayer) Play(context.Context, string, string) error { return nil }
func (noopPlayer) Stop()                                      {}
func (noopPlayer) Playing() (string, bool)                    { return "", false }
