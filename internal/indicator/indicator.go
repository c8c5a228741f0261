// Package indicator handles desktop notifications and audio cues for voice turns.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/lingua/internal/config"
)

// Controller is the session-facing indicator contract.
type Controller interface {
	ShowRecording(context.Context)
	ShowProcessing(context.Context)
	ShowComplete(context.Context, string)
	ShowError(context.Context, string)
	CueStop(context.Context)
	Hide(context.Context)
	Settle(context.Context)
}

// Notifier is the concrete indicator: freedesktop notifications over DBus
// plus synthesized or file-based audio cues.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages

	mu             sync.Mutex
	notificationID uint32
	soundMu        sync.Mutex
	cues           sync.WaitGroup
	emit           func(context.Context, cueKind, config.IndicatorConfig) error
}

// New creates an indicator controller from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: indicatorMessagesFromEnv(),
		emit:     emitCue,
	}
}

// ShowRecording signals recording start and emits the start cue.
func (n *Notifier) ShowRecording(ctx context.Context) {
	n.playCue(cueStart)
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, notification{summary: n.messages.recording, timeoutMS: 300000})
	})
}

// ShowProcessing signals that the recording is being submitted.
func (n *Notifier) ShowProcessing(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, notification{summary: n.messages.processing, timeoutMS: 300000})
	})
}

// ShowComplete emits the completion cue and shows the tutor's reply as the
// notification body.
func (n *Notifier) ShowComplete(ctx context.Context, text string) {
	n.playCue(cueComplete)
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, notification{
			summary:   n.messages.complete,
			body:      strings.TrimSpace(text),
			timeoutMS: n.errorTimeout() * 2,
		})
	})
}

// ShowError emits the error cue and displays an error message.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	n.playCue(cueError)
	if !n.cfg.Enable {
		return
	}
	if text == "" {
		text = n.messages.errorText
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, notification{summary: text, timeoutMS: n.errorTimeout(), urgent: true})
	})
}

// CueStop emits the stop cue.
func (n *Notifier) CueStop(context.Context) {
	n.playCue(cueStop)
}

// Settle blocks until queued cues have finished playing or ctx ends.
// Tutor speech must not start on top of a cue.
func (n *Notifier) Settle(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		n.cues.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Hide dismisses the active notification.
func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, n.dismiss)
}

func (n *Notifier) errorTimeout() int {
	if n.cfg.ErrorTimeoutMS <= 0 {
		return 1200
	}
	return n.cfg.ErrorTimeoutMS
}

// notify sends a replaceable desktop notification and stores its ID.
func (n *Notifier) notify(ctx context.Context, note notification) error {
	n.mu.Lock()
	note.replaceID = n.notificationID
	n.mu.Unlock()

	note.appName = strings.TrimSpace(n.cfg.DesktopAppName)
	if note.appName == "" {
		note.appName = "lingua"
	}

	id, err := desktopNotify(ctx, note)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.notificationID = id
	n.mu.Unlock()
	return nil
}

// dismiss closes the current notification ID when present.
func (n *Notifier) dismiss(ctx context.Context) error {
	n.mu.Lock()
	id := n.notificationID
	n.notificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	n.cues.Add(1)
	go func() {
		defer n.cues.Done()
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		if err := n.emit(ctx, kind, n.cfg); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}

// Nop satisfies Controller without side effects.
type Nop struct{}

func (Nop) ShowRecording(context.Context)        {}
func (Nop) ShowProcessing(context.Context)       {}
func (Nop) ShowComplete(context.Context, string) {}
func (Nop) ShowError(context.Context, string)    {}
func (Nop) CueStop(context.Context)              {}
func (Nop) Hide(context.Context)                 {}
func (Nop) Settle(context.Context)               {}
