// Package app dispatches parsed commands to lingua's runtime components.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rbright/lingua/internal/audio"
	"github.com/rbright/lingua/internal/capability"
	"github.com/rbright/lingua/internal/cli"
	"github.com/rbright/lingua/internal/config"
	"github.com/rbright/lingua/internal/doctor"
	"github.com/rbright/lingua/internal/ipc"
	"github.com/rbright/lingua/internal/logging"
	"github.com/rbright/lingua/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("lingua"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("lingua"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}
	if err := logRuntime.SetLevel(cfgLoaded.Config.Logging.Level); err != nil {
		logger.Warn("invalid log level", "level", cfgLoaded.Config.Logging.Level, "error", err.Error())
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandProbe:
		return r.commandProbe(ctx, cfgLoaded.Config, logger)
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandStop})
	case cli.CommandRetry:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandRetry})
	case cli.CommandAck:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandAck})
	case cli.CommandPlay:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandPlay, TurnID: parsed.TurnID})
	case cli.CommandToggle:
		return r.commandToggle(ctx, cfgLoaded.Config, logger)
	case cli.CommandTalk:
		return r.commandTalk(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandProbe(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	report := capability.NewProber(cfg, nil).Probe(ctx)
	logger.Info("capability probe",
		"recording_supported", report.RecordingSupported,
		"preferred_mime_type", report.PreferredMIMEType,
		"encoder", report.Encoder,
		"reason", report.Reason,
	)

	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, string(encoded))
	if !report.RecordingSupported {
		return 1
	}
	return 0
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		processed := "no"
		if device.Processed() {
			processed = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s | echo_cancel=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
			processed,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus})
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		if resp.Message != "" && resp.Message != "status" {
			fmt.Fprintln(r.Stdout, resp.Message)
		}
		if resp.Turn != nil {
			printRemoteTurn(r.Stdout, resp.Turn)
		}
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, req ipc.Request) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active lingua session\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func printRemoteTurn(w io.Writer, turn *ipc.Turn) {
	fmt.Fprintf(w, "turn: %s\n", turn.ID)
	if turn.Transcript != "" {
		fmt.Fprintf(w, "you said: %s\n", turn.Transcript)
	}
	if turn.TutorMessage != "" {
		fmt.Fprintf(w, "tutor: %s\n", turn.TutorMessage)
	}
	fmt.Fprintf(w, "corrections: %d\n", turn.Corrections)
	if turn.HasAudio {
		state := "available"
		if turn.Playing {
			state = "playing"
		}
		fmt.Fprintf(w, "audio: %s\n", state)
	}
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, 220*time.Millisecond)
	if errors.Is(err, ipc.ErrNoOwner) {
		return ipc.Response{}, false, nil
	}
	if err != nil {
		return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
	}
	if !resp.OK {
		return resp, true, errors.New(resp.Error)
	}
	return resp, true, nil
}
