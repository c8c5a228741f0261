package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rbright/lingua/internal/capability"
	"github.com/rbright/lingua/internal/config"
	"github.com/rbright/lingua/internal/fsm"
	"github.com/rbright/lingua/internal/indicator"
	"github.com/rbright/lingua/internal/ipc"
	"github.com/rbright/lingua/internal/output"
	"github.com/rbright/lingua/internal/pipeline"
	"github.com/rbright/lingua/internal/playback"
	"github.com/rbright/lingua/internal/session"
	"github.com/rbright/lingua/internal/tui"
	"github.com/rbright/lingua/internal/tutorapi"
)

// wiring is a session controller plus the resources it owns.
type wiring struct {
	controller *session.Controller
	player     *playback.Controller
	closers    []io.Closer
}

func (rt *wiring) Close() {
	rt.controller.Close()
	for _, c := range rt.closers {
		_ = c.Close()
	}
}

// newWiring probes capability once and wires capture, submission,
// playback, and indicator into a session controller.
func newWiring(ctx context.Context, cfg config.Config, logger *slog.Logger) *wiring {
	rt := &wiring{}

	report := capability.NewProber(cfg, nil).Probe(ctx)
	logger.Info("capability probe",
		"recording_supported", report.RecordingSupported,
		"preferred_mime_type", report.PreferredMIMEType,
		"encoder", report.Encoder,
		"device", report.Device,
		"reason", report.Reason,
	)

	client := tutorapi.New(cfg.API, tutorapi.TokenStoreFromConfig(cfg.API), logger)
	if cfg.Debug.AudioDump {
		if sink, err := pipeline.CreateDebugFile("responses", "jsonl"); err != nil {
			logger.Warn("unable to create response debug file", "error", err.Error())
		} else {
			client.DebugSink = sink
			rt.closers = append(rt.closers, sink)
		}
	}

	rt.player = playback.NewFromConfig(cfg.Playback, logger)

	var controller *session.Controller
	capture := pipeline.NewCapture(cfg, report, logger, func(seconds int) {
		controller.ObserveElapsed(seconds)
	})
	controller = session.NewController(session.Deps{
		Capture:     capture,
		Submitter:   pipeline.NewSubmitter(client, cfg.Debug, logger),
		Player:      rt.player,
		Indicator:   indicator.New(cfg.Indicator, logger),
		Rewards:     session.NewTally(),
		Preferences: session.PreferencesFromConfig(cfg.Playback),
		Logger:      logger,
	}, report, session.Options{XPPerTurn: cfg.Gamification.XPPerTurn})
	rt.controller = controller

	return rt
}

// acquireOwner claims the control socket. A nil listener with exit code 0
// means the command was forwarded to an existing owner.
func (r Runner) acquireOwner(ctx context.Context, socketPath string, forward *ipc.Request) (net.Listener, int) {
	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err == nil {
		return listener, 0
	}
	if errors.Is(err, ipc.ErrAlreadyRunning) && forward != nil {
		resp, _, forwardErr := tryForward(ctx, socketPath, *forward)
		if forwardErr != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", forwardErr)
			return nil, 1
		}
		if resp.Message != "" {
			fmt.Fprintln(r.Stdout, resp.Message)
		}
		return nil, 0
	}
	fmt.Fprintf(r.Stderr, "error: %v\n", err)
	return nil, 1
}

func serveControl(ctx context.Context, listener net.Listener, controller *session.Controller) (stop func() error) {
	serverCtx, serverCancel := context.WithCancel(ctx)
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, controller)
	}()
	return func() error {
		serverCancel()
		return <-serverErrCh
	}
}

// commandToggle records one turn headlessly. A running owner receives the
// toggle instead, which stops its recording.
func (r Runner) commandToggle(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	toggle := ipc.Request{Command: ipc.CommandToggle}
	resp, handled, err := tryForward(ctx, socketPath, toggle)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.Message != "" {
			fmt.Fprintln(r.Stdout, resp.Message)
		}
		return 0
	}

	listener, code := r.acquireOwner(ctx, socketPath, &toggle)
	if listener == nil {
		return code
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	rt := newWiring(ctx, cfg, logger)
	defer rt.Close()

	stopServer := serveControl(ctx, listener, rt.controller)
	exit := r.runOneTurn(ctx, rt, logger)
	if serverErr := stopServer(); serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}
	return exit
}

func (r Runner) runOneTurn(ctx context.Context, rt *wiring, logger *slog.Logger) int {
	if err := rt.controller.Start(ctx); err != nil {
		fmt.Fprintf(r.Stderr, "error: %s\n", session.UserMessage(err))
		return 1
	}

	view, err := rt.controller.Wait(ctx)
	if err != nil {
		logger.Info("turn cancelled", "state", string(view.State))
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	}

	logTurnResult(logger, view)

	if view.State != fsm.StateComplete || view.Turn == nil {
		message := "voice turn failed"
		if view.Problem != nil {
			message = view.Problem.Message
		}
		fmt.Fprintf(r.Stderr, "error: %s\n", message)
		return 1
	}

	printTurn(r.Stdout, view.Turn.Result)
	waitForPlayback(ctx, rt.player)
	return 0
}

// commandTalk runs the interactive tutor and owns the control socket so
// stop/status/play keep working from other shells.
func (r Runner) commandTalk(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, code := r.acquireOwner(ctx, socketPath, nil)
	if listener == nil {
		return code
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	rt := newWiring(ctx, cfg, logger)
	defer rt.Close()

	stopServer := serveControl(ctx, listener, rt.controller)
	runErr := tui.Run(ctx, rt.controller, tui.Options{
		DebugPanel: cfg.Debug.Panel,
		MaxSeconds: cfg.Recorder.MaxSeconds,
		Clipboard:  output.NewClipboard(cfg.Output, logger),
	})
	serverErr := stopServer()

	final := rt.controller.Snapshot()
	logger.Info("talk session ended", "xp", final.XP, "streak", final.Streak, "state", string(final.State))

	if runErr != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", runErr)
		return 1
	}
	if serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}
	return 0
}

// waitForPlayback keeps the process alive while auto-played audio finishes.
func waitForPlayback(ctx context.Context, player *playback.Controller) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if _, playing := player.Playing(); !playing {
			return
		}
		select {
		case <-ctx.Done():
			player.Stop()
			return
		case <-ticker.C:
		}
	}
}

func printTurn(w io.Writer, result tutorapi.TutorVoiceResult) {
	if transcript := strings.TrimSpace(result.Transcript); transcript != "" {
		fmt.Fprintf(w, "you said: %s\n", transcript)
	}
	fmt.Fprintf(w, "tutor: %s\n", strings.TrimSpace(result.TutorMessage))
	for _, c := range result.Corrections {
		line := fmt.Sprintf("correction: %s -> %s", c.UserSentence, c.CorrectedSentence)
		if c.Explanation != "" {
			line += " (" + c.Explanation + ")"
		}
		fmt.Fprintln(w, line)
	}
	if result.MicroTask != "" {
		fmt.Fprintf(w, "try next: %s\n", result.MicroTask)
	}
}

func logTurnResult(logger *slog.Logger, view session.View) {
	if logger == nil {
		return
	}
	fields := []any{
		"state", string(view.State),
		"audio_bytes", view.Debug.AudioBytes,
		"mime_type", view.Debug.MIMEType,
		"status_code", view.Debug.StatusCode,
		"xp", view.XP,
		"streak", view.Streak,
	}
	if view.Turn != nil {
		fields = append(fields,
			"turn_id", view.Turn.ID,
			"session_id", view.Turn.Result.SessionID,
			"transcript_length", len(view.Turn.Result.Transcript),
			"corrections", len(view.Turn.Result.Corrections),
		)
	}

	if view.Problem != nil {
		logger.Error("turn failed", append(fields, "problem", string(view.Problem.Kind), "error", view.Problem.Detail)...)
		return
	}
	logger.Info("turn complete", fields...)
}
