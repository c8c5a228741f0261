// Package session owns the presentation state of voice turns and routes
// every state change through the fsm transition table.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/lingua/internal/capability"
	"github.com/rbright/lingua/internal/fsm"
	"github.com/rbright/lingua/internal/recorder"
	"github.com/rbright/lingua/internal/tutorapi"
)

var (
	// ErrStarting is returned while a previous Start is still acquiring the microphone.
	ErrStarting = errors.New("recording is already starting")
	// ErrNoAudio is returned by Play when the displayed turn carries no tutor audio.
	ErrNoAudio = errors.New("no tutor audio for this turn")
	// ErrUnknownTurn is returned by PlayTurn for an id that is not displayed.
	ErrUnknownTurn = errors.New("turn is not displayed")
)

// Turn is a completed exchange as displayed.
type Turn struct {
	ID     string
	Result tutorapi.TutorVoiceResult
}

// Debug carries the technical fields shown in the debug panel.
type Debug struct {
	AudioBytes int
	MIMEType   string
	StatusCode int
	Transcript string
	LastError  string
}

// View is a consistent snapshot for rendering.
type View struct {
	State          fsm.State
	Supported      bool
	ElapsedSeconds int
	Turn           *Turn
	Problem        *Problem
	// PlaybackProblem never changes State or Turn.
	PlaybackProblem *Problem
	Playing         bool
	ThreadID        string
	XP              int
	Streak          int
	Debug           Debug
}

// Deps are the controller's collaborators.
type Deps struct {
	Capture     Capture
	Submitter   Submitter
	Player      Player
	Indicator   Indicator
	Rewards     Rewards
	Preferences VoicePreferences
	Logger      *slog.Logger
}

// Options tune controller behavior.
type Options struct {
	XPPerTurn int
}

// Controller coordinates capture, submission, and playback for one user.
type Controller struct {
	capture   Capture
	submitter Submitter
	player    Player
	indicator Indicator
	rewards   Rewards
	prefs     VoicePreferences
	logger    *slog.Logger
	opts      Options

	mu              sync.Mutex
	report          capability.Report
	state           fsm.State
	starting        bool
	stopping        bool
	elapsed         int
	turn            *Turn
	problem         *Problem
	playbackProblem *Problem
	debug           Debug
	threadID        string
	finished        chan struct{}
	subs            []chan View
	closed          bool
}

// NewController constructs a controller with safe default fallbacks.
func NewController(deps Deps, report capability.Report, opts Options) *Controller {
	if deps.Player == nil {
		deps.Player = noopPlayer{}
	}
	if deps.Indicator == nil {
		deps.Indicator = noopIndicator{}
	}
	if deps.Rewards == nil {
		deps.Rewards = NewTally()
	}
	if deps.Preferences == nil {
		deps.Preferences = StaticPreferences{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	finished := make(chan struct{})
	close(finished)

	return &Controller{
		capture:   deps.Capture,
		submitter: deps.Submitter,
		player:    deps.Player,
		indicator: deps.Indicator,
		rewards:   deps.Rewards,
		prefs:     deps.Preferences,
		logger:    deps.Logger,
		opts:      opts,
		report:    report,
		state:     fsm.StateIdle,
		finished:  finished,
	}
}

// State returns the current FSM state.
func (c *Controller) State() fsm.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UpdateReport replaces the capability report guarding idle -> recording.
func (c *Controller) UpdateReport(report capability.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report = report
	c.publishLocked()
}

func (c *Controller) guards() fsm.Guards {
	return fsm.Guards{RecordingSupported: c.report.RecordingSupported}
}

// transitionLocked applies one event; callers hold c.mu.
func (c *Controller) transitionLocked(event fsm.Event) error {
	next, err := fsm.Transition(c.state, event, c.guards())
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Start begins a new turn. An unsupported capability report leaves the
// state at idle without touching the microphone.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.starting {
		c.mu.Unlock()
		return ErrStarting
	}
	if _, err := fsm.Transition(c.state, fsm.EventStart, c.guards()); err != nil {
		if errors.Is(err, fsm.ErrRecordingUnsupported) {
			err = fmt.Errorf("%w: %s", err, c.report.Reason)
			p := Describe(err)
			c.problem = &p
			c.debug.LastError = err.Error()
			c.publishLocked()
			c.logger.Warn("recording refused", "reason", c.report.Reason)
		}
		c.mu.Unlock()
		return err
	}
	c.starting = true
	c.mu.Unlock()

	c.player.Stop()
	err := c.capture.Start(ctx)

	c.mu.Lock()
	c.starting = false
	if err != nil {
		p := c.failLocked(err)
		c.publishLocked()
		c.mu.Unlock()
		c.logger.Error("recording start failed", "kind", string(recorder.KindOf(err)), "error", err.Error())
		c.indicator.ShowError(ctx, p.Message)
		return err
	}

	if err := c.transitionLocked(fsm.EventStart); err != nil {
		c.mu.Unlock()
		c.capture.Stop()
		return err
	}
	c.elapsed = 0
	c.stopping = false
	c.turn = nil
	c.problem = nil
	c.playbackProblem = nil
	c.debug = Debug{}
	finished := make(chan struct{})
	c.finished = finished
	done := c.capture.Done()
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Info("turn recording")
	c.indicator.ShowRecording(ctx)
	go c.await(ctx, done, finished)
	return nil
}

// Stop asks the recorder to finalize. The state stays recording until the
// final flush arrives in await; submission follows automatically.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state != fsm.StateRecording {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("cannot stop from state %s", state)
	}
	if c.stopping {
		c.mu.Unlock()
		return nil
	}
	c.stopping = true
	c.mu.Unlock()

	c.capture.Stop()
	c.indicator.CueStop(ctx)
	return nil
}

// await consumes the recorder's final flush and submits the frozen session.
// finished closes once the turn's side effects have run.
func (c *Controller) await(ctx context.Context, done <-chan recorder.Result, finished chan struct{}) {
	defer close(finished)
	res := <-done

	c.mu.Lock()
	requested := c.stopping
	c.stopping = false
	if res.Err == nil && res.Reason == "cancelled" {
		res.Err = context.Canceled
	}
	if res.Err != nil || res.Session == nil {
		err := res.Err
		if err == nil {
			err = errors.New("recording ended without a session")
		}
		p := c.failLocked(err)
		c.publishLocked()
		c.mu.Unlock()
		c.logger.Error("recording failed", "error", err.Error())
		c.indicator.ShowError(context.Background(), p.Message)
		return
	}

	if err := c.transitionLocked(fsm.EventStop); err != nil {
		c.logger.Warn("stop transition refused", "state", string(c.state), "error", err.Error())
	}
	threadID := c.threadID
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Info("recording stopped", "reason", res.Reason, "bytes", res.Session.TotalBytes())
	if !requested {
		c.indicator.CueStop(ctx)
	}
	c.indicator.ShowProcessing(ctx)

	started := time.Now()
	result, sub, err := c.submitter.Submit(ctx, res.Session, threadID)

	c.mu.Lock()
	c.debug.AudioBytes = sub.AudioBytes
	c.debug.MIMEType = sub.MIMEType
	c.debug.StatusCode = sub.StatusCode
	if err != nil {
		p := c.failLocked(err)
		c.rewards.RecordTurn(false)
		c.publishLocked()
		c.mu.Unlock()
		c.logger.Error("turn submission failed",
			"problem", string(p.Kind),
			"error", err.Error(),
			"latency_ms", time.Since(started).Milliseconds(),
		)
		c.indicator.ShowError(context.Background(), p.Message)
		return
	}

	_ = c.transitionLocked(fsm.EventSubmitted)
	turn := &Turn{ID: res.Session.ID(), Result: result}
	c.turn = turn
	c.debug.Transcript = result.Transcript
	c.debug.LastError = ""
	if result.SessionID != "" {
		c.threadID = result.SessionID
	}
	c.rewards.AddXP(c.opts.XPPerTurn)
	c.rewards.RecordTurn(true)
	c.publishLocked()
	c.mu.Unlock()

	c.logger.Info("turn complete",
		"turn_id", turn.ID,
		"session_id", result.SessionID,
		"corrections", len(result.Corrections),
		"has_audio", result.HasAudio(),
		"latency_ms", time.Since(started).Milliseconds(),
	)
	c.indicator.ShowComplete(context.Background(), result.TutorMessage)

	if result.HasAudio() && c.prefs.AutoPlay() {
		c.indicator.Settle(ctx)
		_ = c.Play(ctx)
	}
}

// failLocked moves to the error sink and records the problem.
func (c *Controller) failLocked(err error) Problem {
	if terr := c.transitionLocked(fsm.EventFail); terr != nil {
		c.logger.Warn("fail transition refused", "state", string(c.state), "error", terr.Error())
	}
	p := Describe(err)
	c.problem = &p
	c.debug.LastError = err.Error()
	return p
}

// Retry discards the displayed result and returns to idle.
func (c *Controller) Retry() error {
	c.mu.Lock()
	if err := c.transitionLocked(fsm.EventRetry); err != nil {
		c.mu.Unlock()
		return err
	}
	c.turn = nil
	c.playbackProblem = nil
	c.publishLocked()
	c.mu.Unlock()

	c.player.Stop()
	return nil
}

// Acknowledge dismisses the current error and returns to idle.
func (c *Controller) Acknowledge() error {
	c.mu.Lock()
	if err := c.transitionLocked(fsm.EventAck); err != nil {
		c.mu.Unlock()
		return err
	}
	c.problem = nil
	c.publishLocked()
	c.mu.Unlock()

	c.indicator.Hide(context.Background())
	return nil
}

// NewConversation forgets the backend session id so the next turn starts a
// fresh thread.
func (c *Controller) NewConversation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threadID = ""
	c.publishLocked()
}

// Play toggles the tutor audio for the displayed turn.
func (c *Controller) Play(ctx context.Context) error {
	return c.PlayTurn(ctx, "")
}

// PlayTurn toggles audio for turn id; an empty id means the displayed turn.
// Playback failures are recorded apart from the turn result.
func (c *Controller) PlayTurn(ctx context.Context, id string) error {
	c.mu.Lock()
	turn := c.turn
	c.mu.Unlock()

	if turn == nil || (id != "" && id != turn.ID) {
		return ErrUnknownTurn
	}
	if !turn.Result.HasAudio() {
		return ErrNoAudio
	}

	err := c.player.Play(ctx, turn.ID, turn.Result.AudioBase64)

	c.mu.Lock()
	if err != nil {
		p := Describe(err)
		c.playbackProblem = &p
		c.logger.Warn("playback failed", "turn_id", turn.ID, "error", err.Error())
	} else {
		c.playbackProblem = nil
	}
	c.publishLocked()
	c.mu.Unlock()
	return err
}

// StopPlayback halts tutor audio.
func (c *Controller) StopPlayback() {
	c.player.Stop()
	c.mu.Lock()
	c.publishLocked()
	c.mu.Unlock()
}

// ObserveElapsed records the recording timer.
func (c *Controller) ObserveElapsed(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != fsm.StateRecording || c.stopping {
		return
	}
	c.elapsed = seconds
	c.publishLocked()
}

// Wait blocks until the current turn reaches complete or error.
func (c *Controller) Wait(ctx context.Context) (View, error) {
	c.mu.Lock()
	finished := c.finished
	c.mu.Unlock()

	select {
	case <-finished:
		return c.Snapshot(), nil
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
}

// Snapshot returns the current view.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Subscribe returns a channel that always holds the latest view. Slow
// readers skip intermediate views.
func (c *Controller) Subscribe() <-chan View {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan View, 1)
	if c.closed {
		close(ch)
		return ch
	}
	ch <- c.viewLocked()
	c.subs = append(c.subs, ch)
	return ch
}

// Close stops playback and closes every subscription.
func (c *Controller) Close() {
	c.player.Stop()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
}

func (c *Controller) viewLocked() View {
	v := View{
		State:          c.state,
		Supported:      c.report.RecordingSupported,
		ElapsedSeconds: c.elapsed,
		ThreadID:       c.threadID,
		XP:             c.rewards.TotalXP(),
		Streak:         c.rewards.CurrentStreak(),
		Debug:          c.debug,
	}
	if c.turn != nil {
		turn := *c.turn
		v.Turn = &turn
		if id, ok := c.player.Playing(); ok && id == turn.ID {
			v.Playing = true
		}
	}
	if c.problem != nil {
		p := *c.problem
		v.Problem = &p
	}
	if c.playbackProblem != nil {
		p := *c.playbackProblem
		v.PlaybackProblem = &p
	}
	return v
}

func (c *Controller) publishLocked() {
	if len(c.subs) == 0 {
		return
	}
	v := c.viewLocked()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}
